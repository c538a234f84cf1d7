package notify_test

import (
	"testing"

	"syncfabric/internal/services/notify"
)

func TestConflictToken_RoundTrip(t *testing.T) {
	tk := notify.NewTokens("secret-a")
	token, err := tk.MakeConflictToken(42)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	id, err := tk.VerifyConflictToken(token)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if id != 42 {
		t.Fatalf("expected conflict id 42 got %d", id)
	}
}

func TestConflictToken_WrongSecretRejected(t *testing.T) {
	token, err := notify.NewTokens("secret-a").MakeConflictToken(42)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := notify.NewTokens("secret-b").VerifyConflictToken(token); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestConflictToken_GarbageRejected(t *testing.T) {
	if _, err := notify.NewTokens("secret-a").VerifyConflictToken("not.a.jwt"); err == nil {
		t.Fatal("expected verification failure")
	}
}
