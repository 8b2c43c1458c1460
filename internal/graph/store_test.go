package graph

import (
	"context"
	"errors"
	"testing"
)

func TestUnavailable(t *testing.T) {
	if Unavailable("count nodes", nil) != nil {
		t.Fatal("nil error should stay nil")
	}

	err := Unavailable("count nodes", context.DeadlineExceeded)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped cause to be preserved, got %v", err)
	}

	var ue *UnavailableError
	if !errors.As(err, &ue) || ue.Op != "count nodes" {
		t.Errorf("expected UnavailableError with op, got %#v", err)
	}
	want := "graph store unavailable during count nodes: context deadline exceeded"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
