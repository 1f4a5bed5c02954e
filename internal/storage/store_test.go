package storage

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Expected clean miss for absent key, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "multichat:chats", []byte(`[{"id":"x"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, ok, err := store.Get(ctx, "multichat:chats")
	if err != nil || !ok {
		t.Fatalf("Expected hit, got ok=%v err=%v", ok, err)
	}
	if string(data) != `[{"id":"x"}]` {
		t.Errorf("Unexpected value: %s", data)
	}

	// Returned slices must not alias stored state.
	data[0] = '!'
	fresh, _, _ := store.Get(ctx, "multichat:chats")
	if fresh[0] == '!' {
		t.Error("Expected stored value to be isolated from returned slice")
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "multichat:history"); err != nil || ok {
		t.Fatalf("Expected clean miss for absent key, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "multichat:history", []byte(`[]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "multichat:history", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	data, ok, err := store.Get(ctx, "multichat:history")
	if err != nil || !ok {
		t.Fatalf("Expected hit, got ok=%v err=%v", ok, err)
	}
	if string(data) != `[{"id":"a"}]` {
		t.Errorf("Unexpected value after overwrite: %s", data)
	}

	// A second store over the same directory sees durable state.
	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	data, ok, _ = reopened.Get(ctx, "multichat:history")
	if !ok || string(data) != `[{"id":"a"}]` {
		t.Error("Expected record to survive reopen")
	}
}
