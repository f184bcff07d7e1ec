package compiler

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pathminer/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// LoadProgramFile reads a program description (CUE or JSON) and compiles it.
func LoadProgramFile(path string) (*ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return CompileBytes(path, data)
}

// CompileBytes compiles a program description held in memory. The filename
// is used only for error positions.
func CompileBytes(filename string, data []byte) (*ir.Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileProgram(v)
}

// CompileProgram unifies v with the program schema and decodes it into the
// program model. Structural errors carry CUE positions. Semantic checks
// (successor ranges, trap ranges, signatures) are done by Validate and the
// first semantic error is returned as a CompileError.
//
// Uses CUE SDK's Go API directly (not CLI subprocess).
func CompileProgram(v cue.Value) (*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("program schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Program")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var raw rawProgram
	if err := unified.Decode(&raw); err != nil {
		return nil, formatCUEError(err)
	}

	prog, err := raw.build(v)
	if err != nil {
		return nil, err
	}

	if errs := Validate(prog); len(errs) > 0 {
		first := errs[0]
		return nil, &CompileError{
			Field:   first.Field,
			Message: fmt.Sprintf("[%s] %s", first.Code, first.Message),
			Pos:     lookupPos(v, first.path),
		}
	}
	return prog, nil
}

type rawProgram struct {
	Classes map[string]rawClass `json:"classes"`
	Methods []rawMethod         `json:"methods"`
}

type rawClass struct {
	Super       string `json:"super"`
	Application bool   `json:"application"`
	SourceFile  string `json:"source_file"`
}

type rawMethod struct {
	Class       string   `json:"class"`
	Name        string   `json:"name"`
	Params      []string `json:"params"`
	Returns     string   `json:"returns"`
	Static      bool     `json:"static"`
	Constructor bool     `json:"constructor"`
	Body        *rawBody `json:"body"`
}

type rawBody struct {
	Stmts []rawStmt `json:"stmts"`
	Traps []ir.Trap `json:"traps"`
}

type rawStmt struct {
	Kind   string     `json:"kind"`
	Succs  []int      `json:"succs"`
	Line   int        `json:"line"`
	Def    *ir.Value  `json:"def"`
	Invoke *rawInvoke `json:"invoke"`
}

type rawInvoke struct {
	Kind   string     `json:"kind"`
	Method string     `json:"method"`
	Base   *ir.Value  `json:"base"`
	Args   []ir.Value `json:"args"`
}

func (r *rawProgram) build(v cue.Value) (*ir.Program, error) {
	prog := &ir.Program{Classes: make(map[string]ir.Class, len(r.Classes))}
	for name, c := range r.Classes {
		prog.Classes[name] = ir.Class{
			Name:        name,
			Super:       c.Super,
			Application: c.Application,
			SourceFile:  c.SourceFile,
		}
	}

	for mi, rm := range r.Methods {
		m := ir.Method{
			Class:       rm.Class,
			Name:        rm.Name,
			Params:      rm.Params,
			Returns:     rm.Returns,
			Static:      rm.Static,
			Constructor: rm.Constructor,
		}
		if m.Params == nil {
			m.Params = []string{}
		}

		if rm.Body != nil {
			body := &ir.Body{Traps: rm.Body.Traps}
			for si, rs := range rm.Body.Stmts {
				s := ir.Stmt{
					Kind:  ir.StmtKind(rs.Kind),
					Succs: rs.Succs,
					Line:  rs.Line,
					Def:   rs.Def,
				}
				if rs.Invoke != nil {
					ref, err := ir.ParseSignature(rs.Invoke.Method)
					if err != nil {
						path := []any{"methods", mi, "body", "stmts", si, "invoke", "method"}
						return nil, &CompileError{
							Field:   formatPath(path),
							Message: err.Error(),
							Pos:     lookupPos(v, path),
						}
					}
					s.Invoke = &ir.InvokeExpr{
						Kind:   ir.InvokeKind(rs.Invoke.Kind),
						Method: ref,
						Base:   rs.Invoke.Base,
						Args:   rs.Invoke.Args,
					}
				}
				body.Stmts = append(body.Stmts, s)
			}
			m.Body = body
		}

		prog.Methods = append(prog.Methods, m)
	}
	return prog, nil
}

// lookupPos resolves a field path (strings and ints) to a source position.
func lookupPos(v cue.Value, path []any) token.Pos {
	sels := make([]cue.Selector, 0, len(path))
	for _, p := range path {
		switch p := p.(type) {
		case string:
			sels = append(sels, cue.Str(p))
		case int:
			sels = append(sels, cue.Index(p))
		}
	}
	for len(sels) > 0 {
		if f := v.LookupPath(cue.MakePath(sels...)); f.Exists() {
			return f.Pos()
		}
		sels = sels[:len(sels)-1]
	}
	return v.Pos()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
