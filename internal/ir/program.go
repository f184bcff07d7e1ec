package ir

import "strings"

// Program is a statically described program: its classes and method bodies.
type Program struct {
	Classes map[string]Class `json:"classes"`
	Methods []Method         `json:"methods"`
}

// Class describes one class of the program or of the platform it runs on.
type Class struct {
	Name        string `json:"name"`
	Super       string `json:"super,omitempty"`
	Application bool   `json:"application"`
	SourceFile  string `json:"source_file,omitempty"`
}

// Method describes a method and, for methods with code, its body.
type Method struct {
	Class       string   `json:"class"`
	Name        string   `json:"name"`
	Params      []string `json:"params"`
	Returns     string   `json:"returns"`
	Static      bool     `json:"static,omitempty"`
	Constructor bool     `json:"constructor,omitempty"`
	Body        *Body    `json:"body,omitempty"`
}

// Ref returns the method reference for m.
func (m Method) Ref() MethodRef {
	return MethodRef{Class: m.Class, Name: m.Name, Params: m.Params, Returns: m.Returns}
}

// Signature returns the quoted signature of m.
func (m Method) Signature() string {
	return m.Ref().Signature()
}

// IsConstructor reports whether m is an instance initializer.
func (m Method) IsConstructor() bool {
	return m.Constructor || m.Name == ConstructorName
}

// Body is the statement list and exception table of a method.
type Body struct {
	Stmts []Stmt `json:"stmts"`
	Traps []Trap `json:"traps,omitempty"`
}

// StmtKind classifies a statement.
type StmtKind string

const (
	StmtAssign     StmtKind = "assign"
	StmtInvoke     StmtKind = "invoke"
	StmtIf         StmtKind = "if"
	StmtGoto       StmtKind = "goto"
	StmtSwitch     StmtKind = "switch"
	StmtNop        StmtKind = "nop"
	StmtReturn     StmtKind = "return"
	StmtReturnVoid StmtKind = "return_void"
	StmtThrow      StmtKind = "throw"
)

// ValidStmtKinds defines allowed statement kinds.
var ValidStmtKinds = map[StmtKind]bool{
	StmtAssign:     true,
	StmtInvoke:     true,
	StmtIf:         true,
	StmtGoto:       true,
	StmtSwitch:     true,
	StmtNop:        true,
	StmtReturn:     true,
	StmtReturnVoid: true,
	StmtThrow:      true,
}

// Stmt is one statement of a body. Its identity is its index in Body.Stmts.
//
// An assign statement may carry an Invoke (x = foo()); an invoke statement
// always does.
type Stmt struct {
	Kind   StmtKind    `json:"kind"`
	Succs  []int       `json:"succs,omitempty"`
	Line   int         `json:"line,omitempty"`
	Def    *Value      `json:"def,omitempty"`
	Invoke *InvokeExpr `json:"invoke,omitempty"`
}

// IsReturn reports whether s returns from its method.
func (s Stmt) IsReturn() bool {
	return s.Kind == StmtReturn || s.Kind == StmtReturnVoid
}

// InvokeKind classifies an invocation expression.
type InvokeKind string

const (
	InvokeVirtual   InvokeKind = "virtual"
	InvokeSpecial   InvokeKind = "special"
	InvokeInterface InvokeKind = "interface"
	InvokeStatic    InvokeKind = "static"
)

// ValidInvokeKinds defines allowed invocation kinds.
var ValidInvokeKinds = map[InvokeKind]bool{
	InvokeVirtual:   true,
	InvokeSpecial:   true,
	InvokeInterface: true,
	InvokeStatic:    true,
}

// InvokeExpr is a method invocation. Base is nil for static invocations.
type InvokeExpr struct {
	Kind   InvokeKind `json:"kind"`
	Method MethodRef  `json:"method"`
	Base   *Value     `json:"base,omitempty"`
	Args   []Value    `json:"args,omitempty"`
}

// IsStatic reports whether the invocation has no receiver.
func (e InvokeExpr) IsStatic() bool {
	return e.Kind == InvokeStatic
}

// Trap is an exception table entry: statements in [Begin, End) are covered
// by the handler at Handler for the given exception class.
type Trap struct {
	Begin     int    `json:"begin"`
	End       int    `json:"end"`
	Handler   int    `json:"handler"`
	Exception string `json:"exception"`
}

// Covers reports whether statement id lies inside the trap range.
func (t Trap) Covers(id int) bool {
	return id >= t.Begin && id < t.End
}

// ValueKind classifies an operand.
type ValueKind string

const (
	ValueLocal  ValueKind = "local"
	ValueField  ValueKind = "field"
	ValueString ValueKind = "string"
	ValueInt    ValueKind = "int"
	ValueNull   ValueKind = "null"
)

// Value is an operand. For string constants Repr holds the constant text.
type Value struct {
	Kind ValueKind `json:"kind,omitempty"`
	Repr string    `json:"repr"`
	Type string    `json:"type"`
}

// ObjectID is the identity of a value: two values denote the same object
// when their scope, representation and type are equal. Scope is the quoted
// signature of the declaring method for locals and empty otherwise.
type ObjectID struct {
	Scope string `json:"scope,omitempty"`
	Repr  string `json:"repr"`
	Type  string `json:"type"`
}

// ID returns the unscoped identity handle of v.
func (v Value) ID() ObjectID {
	return ObjectID{Repr: v.Repr, Type: v.Type}
}

// IDIn returns the identity of v as an operand of the method with the given
// quoted signature. Locals of different methods never share an identity.
func (v Value) IDIn(method string) ObjectID {
	id := v.ID()
	if v.IsLocal() {
		id.Scope = method
	}
	return id
}

// IsLocal reports whether v is a method local. Operands without a kind are
// locals, as in program descriptions.
func (v Value) IsLocal() bool {
	return v.Kind == ValueLocal || v.Kind == ""
}

// IsStringConstant reports whether v is a literal text constant.
func (v Value) IsStringConstant() bool {
	return v.Kind == ValueString
}

// IsRefType reports whether v has a class type. Primitive, array and null
// types are not reference types.
func (v Value) IsRefType() bool {
	return IsRefType(v.Type)
}

var primitiveTypes = map[string]bool{
	"boolean": true,
	"byte":    true,
	"char":    true,
	"short":   true,
	"int":     true,
	"long":    true,
	"float":   true,
	"double":  true,
	"void":    true,
	"null":    true,
	"":        true,
}

// IsRefType reports whether the named type is a class type.
func IsRefType(typ string) bool {
	if primitiveTypes[typ] {
		return false
	}
	return !strings.HasSuffix(typ, "[]")
}
