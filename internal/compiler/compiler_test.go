package compiler

import (
	"strings"
	"testing"
)

func TestCompileMinimalProgram(t *testing.T) {
	src := `program P is begin print 40 + 2 end`
	ir, err := Compile(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(ir, "define void @main() #2 {") {
		t.Errorf("expected a void @main entry point, got:\n%s", ir)
	}
	if !contains(ir, "i32 42") {
		t.Errorf("expected constant-folded 42, got:\n%s", ir)
	}
	if contains(ir, "add nsw") {
		t.Errorf("40 + 2 should have folded away, got an add instruction:\n%s", ir)
	}
}

func TestCompileDivisionByZero(t *testing.T) {
	src := `program P is begin print 1 / 0 end`
	_, err := Compile(src)
	if err == nil {
		t.Fatalf("expected a division by zero error")
	}
}

func TestCompileArrayCycle(t *testing.T) {
	src := `
type A is array of 2 B
type B is array of 2 A
program P is begin end
`
	_, err := Compile(src)
	if err == nil {
		t.Fatalf("expected a dependency cycle error")
	}
}

func TestCompileClassInheritance(t *testing.T) {
	src := `
type Base is class
  var x is integer
end class
type Derived extends Base is class
  var y is integer
end class
func makeSum(b is Derived) returns integer is
begin
  return b.x + b.y
end func
program P
  var d is Derived
is
begin
  print makeSum(d)
end
`
	ir, err := Compile(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(ir, "%class.Base = type { i32 }") {
		t.Errorf("expected Base struct body, got:\n%s", ir)
	}
	if !contains(ir, "%class.Derived = type { %class.Base, i32 }") {
		t.Errorf("expected Derived to prefix Base, got:\n%s", ir)
	}
}

func TestCompileFieldShadowRejected(t *testing.T) {
	src := `
type Base is class
  var x is integer
end class
type Derived extends Base is class
  var x is integer
end class
program P is begin end
`
	_, err := Compile(src)
	if err == nil {
		t.Fatalf("expected a field-shadowing error")
	}
}

func TestCompileConstantBitwiseOr(t *testing.T) {
	src := `program P is begin print 1 | 2 end`
	ir, err := Compile(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(ir, "i32 3") {
		t.Errorf("expected 1 | 2 to fold to the literal 3, got:\n%s", ir)
	}
	if contains(ir, " or i32") {
		t.Errorf("1 | 2 should have folded away, got an or instruction:\n%s", ir)
	}
}

func TestCompileNonConstantDivisionAndModulus(t *testing.T) {
	src := `
func divmod(a is integer, b is integer) returns integer is
begin
  return (a / b) + (a % b)
end func

program P is
begin
  print divmod(7, 2)
end
`
	ir, err := Compile(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(ir, "sdiv i32") {
		t.Errorf("expected a non-constant division to emit sdiv, got:\n%s", ir)
	}
	if !contains(ir, "srem i32") {
		t.Errorf("expected a non-constant modulus to emit srem, got:\n%s", ir)
	}
}

func TestCompileNestedLoopBreakBindsToInnerLoopOnly(t *testing.T) {
	src := `
func f() is
begin
  while true do
    if true then
      break
    end if
    while true do
      break
    end while
  end while
end func

program P is
begin
end
`
	ir, err := Compile(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(ir, "  br label %3\n") != 1 {
		t.Errorf("expected the outer break to branch to the outer loop's own exit block exactly once, got:\n%s", ir)
	}
	if strings.Count(ir, "  br label %8\n") != 1 {
		t.Errorf("expected the inner break to branch to the inner loop's own exit block exactly once (not shared with the outer break), got:\n%s", ir)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
