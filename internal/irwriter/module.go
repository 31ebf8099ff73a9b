// Package irwriter assembles the textual LLVM IR module: target header,
// struct type declarations, interned string constants, function bodies and
// the closing printf declaration/attributes stanzas (spec.md §4.8, §6).
package irwriter

import (
	"fmt"
	"strings"
)

// Module accumulates the pieces of one compiled LLVM IR text file in
// emission order: type declarations (already topologically sorted by the
// Layout Resolver), interned strings, then function bodies.
type Module struct {
	typeDecls []string
	strs      []string
	strIndex  map[string]int
	funcs     []string
}

// NewModule returns a Module with the three constants spec.md §3 requires
// pre-interned at indices 0, 1 and 2.
func NewModule() *Module {
	m := &Module{strIndex: make(map[string]int)}
	m.InternString("\n")
	m.InternString(" ")
	m.InternString("%d")
	return m
}

// AddTypeDecl appends one `%name = type body` line. Called in the
// dependency order Layout Resolver produced.
func (m *Module) AddTypeDecl(irName, body string) {
	m.typeDecls = append(m.typeDecls, fmt.Sprintf("%s = type %s", irName, body))
}

// InternString returns s's dense small integer id, assigning a fresh one on
// first occurrence (spec.md §3's String Interning Table).
func (m *Module) InternString(s string) int {
	if id, ok := m.strIndex[s]; ok {
		return id
	}
	id := len(m.strs)
	m.strs = append(m.strs, s)
	m.strIndex[s] = id
	return id
}

// StrLen returns the declared array length (including the trailing NUL) of
// the interned string with the given id, for use as the `[N x i8]` element
// count in a getelementptr into that constant.
func (m *Module) StrLen(id int) int {
	_, length := escapeString(m.strs[id])
	return length
}

// AddFunction appends a fully lowered and sentinel-patched function body.
func (m *Module) AddFunction(text string) {
	m.funcs = append(m.funcs, text)
}

// escapeString renders s as an LLVM string-constant body: non-printable and
// special bytes hex-escaped, with a trailing NUL.
func escapeString(s string) (body string, length int) {
	var sb strings.Builder
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			sb.WriteByte(c)
		} else {
			fmt.Fprintf(&sb, "\\%02X", c)
		}
		n++
	}
	sb.WriteString("\\00")
	n++
	return sb.String(), n
}

// String assembles the complete module text.
func (m *Module) String() string {
	var b strings.Builder

	b.WriteString("target datalayout = \"e-m:e-i64:64-f80:128-n8:16:32:64-S128\"\n")
	b.WriteString("target triple = \"x86_64-pc-linux-gnu\"\n\n")

	for _, t := range m.typeDecls {
		b.WriteString(t)
		b.WriteString("\n")
	}
	if len(m.typeDecls) > 0 {
		b.WriteString("\n")
	}

	for i, s := range m.strs {
		body, length := escapeString(s)
		fmt.Fprintf(&b, "@.str%d = private unnamed_addr constant [%d x i8] c\"%s\"\n", i, length, body)
	}
	b.WriteString("\n")

	for _, f := range m.funcs {
		b.WriteString(f)
		b.WriteString("\n")
	}

	b.WriteString("declare i32 @printf(i8*, ...) #0\n\n")
	b.WriteString("attributes #0 = { \"frame-pointer\"=\"all\" }\n")
	b.WriteString("attributes #1 = { noinline nounwind optnone uwtable }\n")
	b.WriteString("attributes #2 = { noinline nounwind optnone uwtable }\n")

	return b.String()
}
