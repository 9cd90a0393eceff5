package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

func TestSaveCreatesNestedKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "runs/20260201T000000Z-r1.json", strings.NewReader(`{"ok":true}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := store.Open(ctx, "runs/20260201T000000Z-r1.json")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != `{"ok":true}` {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestRejectsKeysOutsideBase(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"../escape.json", "/etc/passwd", ""} {
		if err := store.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("key %q: expected invalid input, got %v", key, err)
		}
	}
}

func TestOpenMissingKeyIsInvalidInput(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := store.Open(context.Background(), "bodies/none.md"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
