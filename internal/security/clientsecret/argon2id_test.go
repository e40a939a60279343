package clientsecret

import "testing"

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := Hash(Default, "s3cret-value")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !Verify("s3cret-value", phc) {
		t.Fatal("expected verify ok")
	}
	if Verify("wrong", phc) {
		t.Fatal("expected verify fail for wrong secret")
	}
}

func TestVerify_ParsesAllPHCSegments(t *testing.T) {
	// Los dos últimos segmentos (salt y dk) van pegados con "$" de por medio;
	// el parser debe separarlos y honrar los params del string, no Default.
	p := Params{Memory: 8 * 1024, Time: 1, Parallelism: 2, KeyLen: 16}
	phc, err := Hash(p, "s3cret-value")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !Verify("s3cret-value", phc) {
		t.Fatal("expected verify ok for non-default params")
	}
	if Verify("wrong", phc) {
		t.Fatal("expected verify fail for wrong secret")
	}
}

func TestHash_EmptySecret(t *testing.T) {
	if _, err := Hash(Default, ""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestVerify_MalformedPHC(t *testing.T) {
	for _, phc := range []string{
		"",
		"$argon2id$v=18$m=1,t=1,p=1$AAAA$BBBB", // versión incorrecta
		"not-a-phc-string",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$@@@", // base64 inválido
	} {
		if Verify("x", phc) {
			t.Fatalf("expected verify fail for %q", phc)
		}
	}
}
