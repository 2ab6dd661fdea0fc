package tokenstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "p-1"); err != nil || found {
		t.Fatalf("expected empty store, found=%v err=%v", found, err)
	}

	if err := s.Put(ctx, "p-1", "first"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "p-1", "second"); err != nil {
		t.Fatalf("put: %v", err)
	}
	tok, found, err := s.Get(ctx, "p-1")
	if err != nil || !found || tok != "second" {
		t.Fatalf("expected second, got %q found=%v err=%v", tok, found, err)
	}

	if err := s.Put(ctx, "p-2", "other"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if tok, _, _ := s.Get(ctx, "p-1"); tok != "second" {
		t.Fatalf("principals must not share slots, got %q", tok)
	}

	if err := s.Clear(ctx, "p-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Clear(ctx, "p-1"); err != nil {
		t.Fatalf("second clear must be a no-op: %v", err)
	}
	if _, found, _ := s.Get(ctx, "p-1"); found {
		t.Fatalf("expected cleared")
	}

	if err := s.Put(ctx, "", "x"); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := s.Put(ctx, "p-3", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

// exerciseConcurrentPut checks that racing writers leave exactly one of their values.
func exerciseConcurrentPut(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Put(ctx, "p-race", fmt.Sprintf("token-%d", i))
		}(i)
	}
	wg.Wait()

	tok, found, err := s.Get(ctx, "p-race")
	if err != nil || !found {
		t.Fatalf("expected a winner, found=%v err=%v", found, err)
	}
	ok := false
	for i := 0; i < writers; i++ {
		if tok == fmt.Sprintf("token-%d", i) {
			ok = true
		}
	}
	if !ok {
		t.Fatalf("stored value %q was not written by any writer", tok)
	}
}
