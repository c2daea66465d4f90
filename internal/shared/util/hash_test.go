package util

import "testing"

func TestHashScope(t *testing.T) {
	scope := "session:5f0c2b"
	got := HashScope(scope)
	if got != HashScope(scope) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if got == HashScope("session:other") {
		t.Fatalf("expected distinct hashes for distinct scopes")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}
