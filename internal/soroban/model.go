package soroban

import "strings"

// Visibility of a field or function.
type Visibility uint8

const (
	Private Visibility = iota
	Public
)

func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "private"
}

// TypeKind distinguishes record structs from enums.
type TypeKind uint8

const (
	KindStruct TypeKind = iota
	KindEnum
)

func (k TypeKind) String() string {
	if k == KindEnum {
		return "enum"
	}
	return "struct"
}

// Contract is the structure recovered from one source text. It is built once
// by Parse and not modified afterwards.
type Contract struct {
	Name   string
	Types  []TypeDecl
	Impls  []ImplBlock
	Source string // normalized source text
	Label  string
}

// TypeDecl is a #[contracttype] / #[contract] struct or enum.
type TypeDecl struct {
	Name   string
	Kind   TypeKind
	Fields []FieldDecl // declaration order
	Line   uint32
	Raw    string
}

// FieldDecl is one named field. Type is the declared type text with runs of
// whitespace collapsed; it is never resolved.
type FieldDecl struct {
	Name       string
	Type       string
	Visibility Visibility
	Line       uint32
	Column     uint32
}

// ImplBlock is a #[contractimpl] block.
type ImplBlock struct {
	Target    string // implementing type, generics and path stripped
	Trait     string // empty for inherent impls
	Functions []FunctionDecl
	Line      uint32
	Raw       string
}

// FunctionDecl is a function found at the top level of an impl block.
type FunctionDecl struct {
	Name          string
	Receiver      string // "", "self", "&self", "&mut self", "mut self"
	Params        []ParamDecl
	ReturnType    string // empty when the signature has no arrow
	Visibility    Visibility
	IsConstructor bool
	Line          uint32
	BodyLine      uint32 // line of the opening body brace, 0 without a body

	// Raw is the full signature plus body, starting at the beginning of the
	// line that holds the fn keyword.
	Raw string
	// Code is Raw with comments and literal contents blanked. Same length and
	// line layout as Raw.
	Code string
}

// ParamDecl is one non-receiver parameter.
type ParamDecl struct {
	Name string
	Type string
	Line uint32
}

// HasReturn reports whether the signature declares a return type.
func (f *FunctionDecl) HasReturn() bool {
	return f.ReturnType != ""
}

// HasSelf reports whether the function takes a self receiver.
func (f *FunctionDecl) HasSelf() bool {
	return f.Receiver != ""
}

// PosAt converts a byte offset into Raw/Code to a 1-based source line and column.
func (f *FunctionDecl) PosAt(off int) (line, col uint32) {
	if off < 0 {
		off = 0
	}
	if off > len(f.Code) {
		off = len(f.Code)
	}
	prefix := f.Code[:off]
	nl := strings.Count(prefix, "\n")
	lineStart := strings.LastIndexByte(prefix, '\n') + 1
	return f.Line + u32(nl), u32(off-lineStart) + 1
}

// Param returns the first parameter named name.
func (f *FunctionDecl) Param(name string) (ParamDecl, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDecl{}, false
}

// Fields returns every field of every type in declaration order.
func (c *Contract) Fields() []FieldDecl {
	var out []FieldDecl
	for _, t := range c.Types {
		out = append(out, t.Fields...)
	}
	return out
}

// Functions returns every function of every impl block in order.
func (c *Contract) Functions() []*FunctionDecl {
	var out []*FunctionDecl
	for i := range c.Impls {
		for j := range c.Impls[i].Functions {
			out = append(out, &c.Impls[i].Functions[j])
		}
	}
	return out
}
