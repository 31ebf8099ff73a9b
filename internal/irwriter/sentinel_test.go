package irwriter

import (
	"strings"
	"testing"
)

func TestPlaceholderWidth(t *testing.T) {
	p := Placeholder(BreakSentinel)
	if len(p) != HoleWidth {
		t.Fatalf("got width %d, want %d", len(p), HoleWidth)
	}
	if p[0] != BreakSentinel {
		t.Errorf("expected placeholder to start with the sentinel byte, got %q", p)
	}
	if strings.Trim(p[1:], " ") != "" {
		t.Errorf("expected padding after the sentinel byte, got %q", p)
	}
}

func TestPlaceholderDistinctSentinels(t *testing.T) {
	b := Placeholder(BreakSentinel)
	c := Placeholder(ContinueSentinel)
	if b == c {
		t.Fatalf("break and continue placeholders must differ")
	}
	if b[0] == c[0] {
		t.Errorf("expected distinct sentinel bytes, got %#x and %#x", b[0], c[0])
	}
}

func TestPlaceholderOverwriteInPlace(t *testing.T) {
	buf := "  br label %" + Placeholder(BreakSentinel) + "\n"
	pos := strings.IndexByte(buf, BreakSentinel)
	if pos < 0 {
		t.Fatalf("expected sentinel byte in buffer")
	}
	patched := buf[:pos] + "5" + buf[pos+HoleWidth:]
	want := "  br label %5\n"
	if patched != want {
		t.Errorf("got %q, want %q", patched, want)
	}
}
