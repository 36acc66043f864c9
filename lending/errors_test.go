package lending

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestErrorWrapUnwrap(t *testing.T) {
	root := errors.New("disk full")
	err := persistenceError("codec.save", root)

	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is to match cause")
	}
	var got *Error
	if !errors.As(fmt.Errorf("outer: %w", err), &got) {
		t.Fatalf("expected errors.As to match *Error")
	}
	if got.Kind != KindPersistence {
		t.Fatalf("want kind %s, got %s", KindPersistence, got.Kind)
	}
	if !strings.Contains(err.Error(), "disk full") || !strings.Contains(err.Error(), "codec.save") {
		t.Fatalf("message lacks context: %q", err.Error())
	}
}

func TestKindOf(t *testing.T) {
	if k := KindOf(errors.New("plain")); k != "" {
		t.Fatalf("plain error should have no kind, got %q", k)
	}
	if k := KindOf(nil); k != "" {
		t.Fatalf("nil error should have no kind, got %q", k)
	}
	err := fmt.Errorf("menu: %w", newError("ledger.lend", KindConflict, "game %d is already on loan", 1))
	if !IsKind(err, KindConflict) {
		t.Fatalf("expected wrapped conflict, got %q", KindOf(err))
	}
}

func TestDueAmount(t *testing.T) {
	err := &Error{Op: "ledger.return_loan", Kind: KindInsufficientPayment, Due: decimal.NewFromInt(4)}
	due, ok := DueAmount(err)
	if !ok || !due.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("want 4, got %s ok=%v", due, ok)
	}
	if _, ok := DueAmount(newError("x", KindConflict, "no")); ok {
		t.Fatalf("only insufficient payment errors carry an amount")
	}
}
