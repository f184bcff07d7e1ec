package ir

import (
	"fmt"
	"strings"
)

// ConstructorName is the method name of instance initializers.
const ConstructorName = "<init>"

// MethodRef identifies a method without its body.
type MethodRef struct {
	Class   string   `json:"class"`
	Name    string   `json:"name"`
	Params  []string `json:"params"`
	Returns string   `json:"returns"`
}

// SubSignature returns "<ret> <name>(<p1>,<p2>)".
func (r MethodRef) SubSignature() string {
	return fmt.Sprintf("%s %s(%s)", r.Returns, r.Name, strings.Join(r.Params, ","))
}

// Signature returns the quoted form used in events and call predicates:
//
//	"java.io.File: void <init>(java.lang.String)"
func (r MethodRef) Signature() string {
	return `"` + r.Key() + `"`
}

// Key returns the unquoted signature, used to look methods up.
func (r MethodRef) Key() string {
	return r.Class + ": " + r.SubSignature()
}

// IsConstructor reports whether the reference names an instance initializer.
func (r MethodRef) IsConstructor() bool {
	return r.Name == ConstructorName
}

// ParseSignature parses "<class>: <ret> <name>(<params>)", quoted or not.
func ParseSignature(s string) (MethodRef, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}

	cls, sub, ok := strings.Cut(s, ": ")
	if !ok || cls == "" {
		return MethodRef{}, fmt.Errorf("signature %q: missing class", s)
	}

	ret, rest, ok := strings.Cut(sub, " ")
	if !ok || ret == "" {
		return MethodRef{}, fmt.Errorf("signature %q: missing return type", s)
	}

	open := strings.Index(rest, "(")
	if open <= 0 || !strings.HasSuffix(rest, ")") {
		return MethodRef{}, fmt.Errorf("signature %q: malformed parameter list", s)
	}

	ref := MethodRef{
		Class:   cls,
		Name:    rest[:open],
		Returns: ret,
		Params:  []string{},
	}
	if params := strings.TrimSpace(rest[open+1 : len(rest)-1]); params != "" {
		for _, p := range strings.Split(params, ",") {
			ref.Params = append(ref.Params, strings.TrimSpace(p))
		}
	}
	return ref, nil
}

// MustParseSignature is like ParseSignature but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseSignature(s string) MethodRef {
	ref, err := ParseSignature(s)
	if err != nil {
		panic(err)
	}
	return ref
}
