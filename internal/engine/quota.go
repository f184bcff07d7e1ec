package engine

import "fmt"

// QuotaEnforcer counts one resource within a single attempt and enforces a
// maximum.
//
// Each attempt owns two enforcers:
//   - events: every event appended to any history (SEQUENCE_TOO_LONG)
//   - steps: every statement visit of the walk (DEPTH_EXHAUSTED)
//
// The step quota replaces the host recursion limit as the circuit breaker
// for cyclic graphs and unbounded interprocedural recursion.
type QuotaEnforcer struct {
	code     RuntimeErrorCode
	resource string
	limit    int
	current  int
}

// NewQuotaEnforcer creates an enforcer that fails with code once more than
// limit units were consumed.
func NewQuotaEnforcer(code RuntimeErrorCode, resource string, limit int) *QuotaEnforcer {
	return &QuotaEnforcer{code: code, resource: resource, limit: limit}
}

// Check consumes one unit and validates against the limit.
func (q *QuotaEnforcer) Check(method string) error {
	q.current++
	if q.current > q.limit {
		return &RuntimeError{
			Code:    q.code,
			Message: fmt.Sprintf("%s exceeded (%d > %d)", q.resource, q.current, q.limit),
			Method:  method,
			Details: map[string]string{
				"count": fmt.Sprintf("%d", q.current),
				"limit": fmt.Sprintf("%d", q.limit),
			},
		}
	}
	return nil
}

// Reset sets the counter back to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the number of units consumed.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// Limit returns the maximum.
func (q *QuotaEnforcer) Limit() int {
	return q.limit
}
