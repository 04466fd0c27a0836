package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"timed-quiz-service/internal/domain"
)

func TestTransferStoreReadsOnce(t *testing.T) {
	mr, client := newClient(t)
	store := NewTransferStore(client)
	ctx := context.Background()

	if err := store.Put(ctx, "result:s1", []byte(`{"score":2}`), time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("quiz:transfer:result:s1") {
		t.Fatalf("expected transfer key")
	}
	got, err := store.Take(ctx, "result:s1")
	if err != nil || string(got) != `{"score":2}` {
		t.Fatalf("unexpected take %q %v", got, err)
	}
	if _, err := store.Take(ctx, "result:s1"); !errors.Is(err, domain.ErrTransferNotFound) {
		t.Fatalf("expected second take to miss, got %v", err)
	}
}

func TestTransferStoreExpires(t *testing.T) {
	mr, client := newClient(t)
	store := NewTransferStore(client)
	ctx := context.Background()

	_ = store.Put(ctx, "k", []byte("v"), time.Second)
	mr.FastForward(2 * time.Second)
	if _, err := store.Take(ctx, "k"); !errors.Is(err, domain.ErrTransferNotFound) {
		t.Fatalf("expected expired transfer to miss, got %v", err)
	}
}
