package monitor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ParseError reports a malformed definition line. Malformed input is fatal
// for the whole run.
type ParseError struct {
	Line    int
	Text    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Message, e.Text)
}

var (
	transitionRE = regexp.MustCompile(`^(\d+)->(\d+) (\w+) (.*)$`)
	equalityRE   = regexp.MustCompile(`^\$(\d+)(=|!=)\$(\d+)_(.*)$`)
	arityRE      = regexp.MustCompile(`^(=|<|>)(\d+)$`)
	argValueRE   = regexp.MustCompile(`^(!)?\$(\d+) "(.*)"$`)
	exceptionRE  = regexp.MustCompile(`^(!)?(.+)$`)
)

// ParseFile reads monitor definitions from path.
func ParseFile(path string) ([]*Monitor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open monitors file: %w", err)
	}
	defer f.Close()

	ms, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ms, nil
}

// Parse reads monitor definitions. Blank lines and lines starting with "#"
// are skipped, "m#" starts a new automaton, and every other line must be a
// transition. Monitors are returned in definition order.
func Parse(r io.Reader) ([]*Monitor, error) {
	var (
		monitors []*Monitor
		current  []Transition
		open     bool
	)

	flush := func() {
		if open {
			monitors = append(monitors, New(current))
		}
	}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "m#") {
			flush()
			current = nil
			open = true
			continue
		}
		if !open {
			return nil, &ParseError{Line: lineNo, Text: raw, Message: "transition before first m#"}
		}

		t, err := parseTransition(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: raw, Message: err.Error()}
		}
		current = append(current, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read monitors: %w", err)
	}

	flush()
	return monitors, nil
}

// ParseString is Parse over a string.
func ParseString(s string) ([]*Monitor, error) {
	return Parse(strings.NewReader(s))
}

func parseTransition(line string) (Transition, error) {
	m := transitionRE.FindStringSubmatch(line)
	if m == nil {
		return Transition{}, fmt.Errorf("malformed transition")
	}

	from, err := strconv.Atoi(m[1])
	if err != nil {
		return Transition{}, fmt.Errorf("invalid state %s", m[1])
	}
	to, err := strconv.Atoi(m[2])
	if err != nil {
		return Transition{}, fmt.Errorf("invalid state %s", m[2])
	}

	pred, err := ParsePredicate(Kind(m[3]), m[4])
	if err != nil {
		return Transition{}, err
	}
	return NewTransition(State(from), State(to), pred)
}

// ParsePredicate builds a predicate from its kind token and parameter text.
// Unknown kinds yield an error.
func ParsePredicate(kind Kind, rest string) (Predicate, error) {
	switch kind {
	case KindEquality:
		m := equalityRE.FindStringSubmatch(rest)
		if m == nil {
			return nil, fmt.Errorf("malformed equality predicate %q", rest)
		}
		left, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid argument number %q", m[1])
		}
		right, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("invalid argument number %q", m[3])
		}
		return Equality{Left: left, Right: right, Equal: m[2] == "=", Method: m[4]}, nil

	case KindCall:
		if rest == "" {
			return nil, fmt.Errorf("empty call predicate")
		}
		return Call{Signature: rest}, nil

	case KindArity:
		m := arityRE.FindStringSubmatch(rest)
		if m == nil {
			return nil, fmt.Errorf("malformed arity predicate %q", rest)
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("invalid arity %q", m[2])
		}
		return Arity{Op: ArityOp(m[1][0]), N: n}, nil

	case KindArgValueRE:
		m := argValueRE.FindStringSubmatch(rest)
		if m == nil {
			return nil, fmt.Errorf("malformed RE predicate %q", rest)
		}
		arg, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("invalid argument number %q", m[2])
		}
		return NewArgValueRE(m[1] != "", arg, m[3])

	case KindException:
		m := exceptionRE.FindStringSubmatch(rest)
		if m == nil {
			return nil, fmt.Errorf("malformed exception predicate %q", rest)
		}
		return Exception{Negated: m[1] != "", Class: m[2]}, nil

	default:
		return nil, fmt.Errorf("unknown predicate type %q", kind)
	}
}

// Format writes monitors in definition-file syntax. Parsing the output
// yields the same transition tables.
func Format(w io.Writer, ms []*Monitor) error {
	for _, m := range ms {
		if _, err := fmt.Fprintln(w, "m#"); err != nil {
			return err
		}
		for _, t := range m.transitions {
			if _, err := fmt.Fprintln(w, t.String()); err != nil {
				return err
			}
		}
	}
	return nil
}
