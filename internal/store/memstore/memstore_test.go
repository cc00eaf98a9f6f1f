package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/Makepad-fr/tada/internal/store"
)

func TestGetMissing(t *testing.T) {
	s := New()
	if _, err := s.Get(context.Background(), "todos"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSetOverwritesAndCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	buf := []byte("first")
	if err := s.Set(ctx, "todos", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'X'
	if err := s.Set(ctx, "todos", []byte("second")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "todos")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("Get = %q, want %q", got, "second")
	}
	if s.Writes() != 2 {
		t.Errorf("Writes = %d, want 2", s.Writes())
	}
}
