package irwriter

import (
	"strings"
	"testing"
)

func TestPreinternedConstants(t *testing.T) {
	m := NewModule()
	if id := m.InternString("\n"); id != 0 {
		t.Errorf("expected \\n preinterned at 0, got %d", id)
	}
	if id := m.InternString(" "); id != 1 {
		t.Errorf("expected space preinterned at 1, got %d", id)
	}
	if id := m.InternString("%d"); id != 2 {
		t.Errorf("expected %%d preinterned at 2, got %d", id)
	}
}

func TestInternStringDedups(t *testing.T) {
	m := NewModule()
	a := m.InternString("hello")
	b := m.InternString("hello")
	if a != b {
		t.Errorf("expected the same string to intern to the same id, got %d and %d", a, b)
	}
}

func TestModuleStringIncludesHeader(t *testing.T) {
	m := NewModule()
	text := m.String()
	if !strings.Contains(text, "target datalayout") {
		t.Error("expected target datalayout header")
	}
	if !strings.Contains(text, "declare i32 @printf") {
		t.Error("expected printf declaration")
	}
}

func TestTypeDeclsEmittedInAddedOrder(t *testing.T) {
	m := NewModule()
	m.AddTypeDecl("%class.Base", "{ i32 }")
	m.AddTypeDecl("%class.Derived", "{ %class.Base, i32 }")
	text := m.String()
	if strings.Index(text, "%class.Base") > strings.Index(text, "%class.Derived") {
		t.Error("expected Base type declaration before Derived")
	}
}
