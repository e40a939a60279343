package credential

import (
	"strings"
	"testing"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	a := DeriveKey(KindAuthCode, "svc/client-1", "secret")
	b := DeriveKey(KindAuthCode, "svc/client-1", "secret")
	if a != b {
		t.Fatalf("not deterministic: %q vs %q", a, b)
	}
}

func TestDeriveKey_KindDisjoint(t *testing.T) {
	// Mismo clientKey y secreto: las keys de las tres clases nunca colisionan.
	ac := DeriveKey(KindAuthCode, "svc/c1", "s")
	at := DeriveKey(KindAccessToken, "svc/c1", "s")
	rt := DeriveKey(KindRefreshToken, "svc/c1", "s")

	if ac == at || at == rt || ac == rt {
		t.Fatalf("keys collided across kinds: %q %q %q", ac, at, rt)
	}
	if !strings.HasPrefix(ac, "ac:") || !strings.HasPrefix(at, "at:") || !strings.HasPrefix(rt, "rt:") {
		t.Fatalf("keys missing class prefix: %q %q %q", ac, at, rt)
	}
}

func TestDeriveKey_InputsDisjoint(t *testing.T) {
	if DeriveKey(KindAuthCode, "svc/c1", "s1") == DeriveKey(KindAuthCode, "svc/c1", "s2") {
		t.Fatal("distinct secrets collided")
	}
	if DeriveKey(KindAuthCode, "svc/c1", "s") == DeriveKey(KindAuthCode, "svc/c2", "s") {
		t.Fatal("distinct clients collided")
	}
}

func TestKind_Strings(t *testing.T) {
	cases := map[Kind]string{
		KindAuthCode:     "auth_code",
		KindAccessToken:  "access",
		KindRefreshToken: "refresh",
	}
	for k, want := range cases {
		if k.String() != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", int(k), k.String(), want)
		}
	}
}
