package coupon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/giftnest/checkout-service/pkg/logger"
)

type fakeChecker struct {
	first bool
	err   error
}

func (f *fakeChecker) CheckFirstOrder(ctx context.Context, userID string) (bool, error) {
	return f.first, f.err
}

// setupCodeFiles writes two plain-text code lists and returns their paths.
func setupCodeFiles(t *testing.T) (string, string) {
	t.Helper()

	tmpDir := t.TempDir()

	file1 := filepath.Join(tmpDir, "codes1.txt")
	file2 := filepath.Join(tmpDir, "codes2.txt")

	if err := os.WriteFile(file1, []byte("WELCOME10\nSAVE25\n\nFESTIVE50\n"), 0644); err != nil {
		t.Fatalf("failed to create code file 1: %v", err)
	}
	if err := os.WriteFile(file2, []byte("FIRSTBUY\nSAVE25\n"), 0644); err != nil {
		t.Fatalf("failed to create code file 2: %v", err)
	}

	return file1, file2
}

func TestHints_LoadFromFiles(t *testing.T) {
	t.Run("successful load", func(t *testing.T) {
		file1, file2 := setupCodeFiles(t)
		h := NewHints(&fakeChecker{}, logger.New("error"))

		if err := h.LoadFromFiles(context.Background(), []string{file1, file2}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		stats := h.Stats()
		if stats["loaded"] != true {
			t.Error("expected loaded=true")
		}
		if stats["total_files"] != 2 {
			t.Errorf("total_files = %v, want 2", stats["total_files"])
		}
		if stats["total_codes"] != 5 {
			t.Errorf("total_codes = %v, want 5", stats["total_codes"])
		}
	})

	t.Run("no sources", func(t *testing.T) {
		h := NewHints(&fakeChecker{}, logger.New("error"))
		if err := h.LoadFromFiles(context.Background(), nil); err == nil {
			t.Error("expected error for empty source list")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		h := NewHints(&fakeChecker{}, logger.New("error"))
		err := h.LoadFromFiles(context.Background(), []string{"/does/not/exist.txt"})
		if err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestHints_LooksKnown(t *testing.T) {
	file1, file2 := setupCodeFiles(t)
	h := NewHints(&fakeChecker{}, logger.New("error"))

	if err := h.LoadFromFiles(context.Background(), []string{file1, file2}); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// every loaded code must test positive; the filter has no false negatives
	for _, code := range []string{"WELCOME10", "SAVE25", "FESTIVE50", "FIRSTBUY"} {
		if !h.LooksKnown(code) {
			t.Errorf("LooksKnown(%q) = false, want true", code)
		}
	}
}

func TestHints_LooksKnownWithoutFilter(t *testing.T) {
	h := NewHints(&fakeChecker{}, logger.New("error"))

	// with no lists loaded there is no signal; nothing may be flagged unknown
	if !h.LooksKnown("ANYCODE99") {
		t.Error("unloaded filter must not flag codes as unknown")
	}
}

func TestHints_FirstOrder(t *testing.T) {
	t.Run("flag passthrough", func(t *testing.T) {
		h := NewHints(&fakeChecker{first: true}, logger.New("error"))
		first, err := h.FirstOrder(context.Background(), "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !first {
			t.Error("expected first-order flag")
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		h := NewHints(&fakeChecker{err: errors.New("unavailable")}, logger.New("error"))
		if _, err := h.FirstOrder(context.Background(), "u1"); err == nil {
			t.Error("expected error")
		}
	})
}
