package secret

import (
	"strings"
	"testing"
)

func TestGenerateOpaque_RejectsInvalidLength(t *testing.T) {
	for _, n := range []int{0, -1, -32} {
		if _, err := GenerateOpaque(n); err == nil {
			t.Fatalf("expected error for nBytes=%d", n)
		}
	}
}

func TestGenerateOpaque_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		s, err := GenerateOpaque(32)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if s == "" {
			t.Fatal("empty secret")
		}
		if strings.ContainsAny(s, "+/=") {
			t.Fatalf("not base64url: %q", s)
		}
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate secret after %d iterations", i)
		}
		seen[s] = struct{}{}
	}
}

func TestSHA256Base64URL_Deterministic(t *testing.T) {
	a := SHA256Base64URL("hello")
	b := SHA256Base64URL("hello")
	if a != b {
		t.Fatalf("not deterministic: %q vs %q", a, b)
	}
	if a == SHA256Base64URL("hellp") {
		t.Fatal("distinct inputs collided")
	}
	// sha256 = 32 bytes = 43 chars base64url sin padding
	if len(a) != 43 {
		t.Fatalf("unexpected hash length %d", len(a))
	}
}
