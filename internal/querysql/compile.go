package querysql

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/pathminer/internal/queryir"
)

// SQLCompiler compiles queryir queries to parameterized SQL for SQLite.
//
// Every query gets an ORDER BY with a deterministic tiebreaker, and every
// literal is a ? parameter.
type SQLCompiler struct {
	// OrderKeys maps a table to its ORDER BY clause. Tables not listed
	// are ordered by id.
	OrderKeys map[string]string
}

// DefaultOrderKeys orders stored sequences by emission.
var DefaultOrderKeys = map[string]string{
	"sequences": "seq ASC, id ASC COLLATE BINARY",
	"runs":      "id ASC COLLATE BINARY",
}

const defaultOrderKey = "id ASC COLLATE BINARY"

var identRE = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NewSQLCompiler creates a compiler with DefaultOrderKeys.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{OrderKeys: DefaultOrderKeys}
}

// Compile converts a query to (sql, params).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	switch query := q.(type) {
	case nil:
		return "", nil, fmt.Errorf("cannot compile nil query")
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	if err := checkIdent(q.From); err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}

	selectClause, err := c.compileBindings(q.Bindings)
	if err != nil {
		return "", nil, err
	}

	var whereClause string
	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.From, q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		selectClause,
		q.From,
		whereClause,
		c.stableOrderKey(q.From))

	return sql, params, nil
}

// compileBindings renders the column list, sorted by column name.
func (c *SQLCompiler) compileBindings(bindings map[string]string) (string, error) {
	if len(bindings) == 0 {
		return "*", nil
	}

	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, col := range keys {
		as := bindings[col]
		if err := checkIdent(col); err != nil {
			return "", fmt.Errorf("binding: %w", err)
		}
		if col == as {
			parts = append(parts, col)
			continue
		}
		if err := checkIdent(as); err != nil {
			return "", fmt.Errorf("binding alias: %w", err)
		}
		parts = append(parts, col+" AS "+as)
	}
	return strings.Join(parts, ", "), nil
}

func (c *SQLCompiler) stableOrderKey(table string) string {
	if key, ok := c.OrderKeys[table]; ok {
		return key
	}
	return defaultOrderKey
}

func (c *SQLCompiler) compilePredicate(table string, p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.HasCall:
		return c.compileHasCall(table, pred)
	case *queryir.HasCall:
		return c.compileHasCall(table, *pred)
	case queryir.And:
		return c.compileAnd(table, pred)
	case *queryir.And:
		return c.compileAnd(table, *pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	if err := checkIdent(eq.Field); err != nil {
		return "", nil, fmt.Errorf("field: %w", err)
	}
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", eq.Field, err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

// compileHasCall renders an EXISTS over the events of the sequence row.
func (c *SQLCompiler) compileHasCall(table string, hc queryir.HasCall) (string, []any, error) {
	if hc.Signature == "" {
		return "", nil, fmt.Errorf("call filter without a signature")
	}
	sql := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM events WHERE events.sequence_id = %s.id AND events.call = ?)",
		table)
	return sql, []any{hc.Signature}, nil
}

func (c *SQLCompiler) compileAnd(table string, and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(table, pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func checkIdent(name string) error {
	if !identRE.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

func valueToParam(v queryir.Value) (any, error) {
	switch val := v.(type) {
	case queryir.Text:
		return string(val), nil
	case queryir.Int:
		return int64(val), nil
	case queryir.Null, nil:
		return nil, fmt.Errorf("NULL cannot be compared")
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}
