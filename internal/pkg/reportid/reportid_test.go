package reportid

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestGenerate_Shape(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		id := Generate()
		if !IsWellFormed(id) {
			t.Fatalf("generated id %q is not well formed", id)
		}
	}
}

func TestFromUUID_Deterministic(t *testing.T) {
	t.Parallel()

	u := uuid.MustParse("12345678-9abc-def0-1234-56789abcdef0")
	if a, b := fromUUID(u), fromUUID(u); a != b {
		t.Fatalf("expected same id for same uuid, got %q and %q", a, b)
	}
	if got := fromUUID(uuid.UUID{}); got != "URB000000" {
		t.Fatalf("expected zero padded id, got %q", got)
	}
}

func TestNext_RetriesOnCollision(t *testing.T) {
	t.Parallel()

	calls := 0
	id, err := Next(func(candidate string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 checks, got %d", calls)
	}
	if !IsWellFormed(id) {
		t.Fatalf("id %q is not well formed", id)
	}
}

func TestNext_Exhausted(t *testing.T) {
	t.Parallel()

	_, err := Next(func(string) (bool, error) { return true, nil })
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestNext_PropagatesLookupError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	_, err := Next(func(string) (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}

func TestNormalizeAndWellFormed(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"URB123456":  true,
		"URB12345":   false,
		"URB12345X":  false,
		"ABC123456":  false,
		"URB1234567": false,
	}
	for in, want := range cases {
		if got := IsWellFormed(in); got != want {
			t.Fatalf("IsWellFormed(%q) = %v, want %v", in, got, want)
		}
	}
	if got := Normalize("  urb123456 "); got != "URB123456" {
		t.Fatalf("unexpected normalized id %q", got)
	}
}
