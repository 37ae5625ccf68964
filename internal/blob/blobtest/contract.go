// Package blobtest holds the behavioural contract every blob driver must pass.
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"carbonledger/internal/blob/core"
)

// RunContract exercises overwrite semantics, not-found reporting, delete and
// prefix listing against the store returned by newStore. newStore is called
// once per subtest and must return an empty store.
func RunContract(t *testing.T, newStore func(t *testing.T) core.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key reports not found", func(t *testing.T) {
		s := newStore(t)
		if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("get: expected ErrNotFound, got %v", err)
		}
		if _, err := s.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("head: expected ErrNotFound, got %v", err)
		}
		if ok, err := s.Delete(ctx, "missing"); err != nil || ok {
			t.Fatalf("delete missing: %v %v", ok, err)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Put(ctx, "state", bytes.NewReader([]byte("first")), core.PutOptions{ContentType: "application/json"}); err != nil {
			t.Fatalf("put: %v", err)
		}
		info, err := s.Put(ctx, "state", bytes.NewReader([]byte("second!")), core.PutOptions{ContentType: "application/json"})
		if err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		if info.Key != "state" || info.Size != int64(len("second!")) {
			t.Fatalf("unexpected info %+v", info)
		}
		got := read(t, s, "state")
		if got != "second!" {
			t.Fatalf("expected overwritten payload, got %q", got)
		}
		head, err := s.Head(ctx, "state")
		if err != nil || head.Size != int64(len("second!")) {
			t.Fatalf("head: %+v %v", head, err)
		}
	})

	t.Run("delete and list", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"b/2", "a/1", "b/1"} {
			if _, err := s.Put(ctx, k, bytes.NewReader([]byte(k)), core.PutOptions{}); err != nil {
				t.Fatalf("put %s: %v", k, err)
			}
		}
		list, err := s.List(ctx, "b/")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].Key != "b/1" || list[1].Key != "b/2" {
			t.Fatalf("unexpected listing %+v", list)
		}
		ok, err := s.Delete(ctx, "b/1")
		if err != nil || !ok {
			t.Fatalf("delete: %v %v", ok, err)
		}
		if _, _, err := s.Get(ctx, "b/1"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("deleted key should be gone, got %v", err)
		}
		all, err := s.List(ctx, "")
		if err != nil || len(all) != 2 {
			t.Fatalf("list all: %+v %v", all, err)
		}
	})
}

func read(t *testing.T, s core.Store, key string) string {
	t.Helper()
	_, rc, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return string(b)
}
