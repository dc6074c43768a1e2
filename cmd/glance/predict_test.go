package main

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveImagePayload(t *testing.T) {
	image := []byte("\x89PNG\r\n\x1a\nfake")
	path := filepath.Join(t.TempDir(), "cat.png")
	if err := os.WriteFile(path, image, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	want := base64.StdEncoding.EncodeToString(image)

	orig := stdinIsTTY
	t.Cleanup(func() { stdinIsTTY = orig })
	stdinIsTTY = func() bool { return true }

	t.Run("flag", func(t *testing.T) {
		got, err := resolveImagePayload("data:image/png;base64,AAAA", "", nil)
		if err != nil || got != "data:image/png;base64,AAAA" {
			t.Fatalf("got %q, %v", got, err)
		}
	})
	t.Run("file", func(t *testing.T) {
		got, err := resolveImagePayload("", path, nil)
		if err != nil || got != want {
			t.Fatalf("got %q, %v", got, err)
		}
	})
	t.Run("stdin dash", func(t *testing.T) {
		got, err := resolveImagePayload("", "-", strings.NewReader(string(image)))
		if err != nil || got != want {
			t.Fatalf("got %q, %v", got, err)
		}
	})
	t.Run("flag and file", func(t *testing.T) {
		if _, err := resolveImagePayload("AAAA", path, nil); err == nil {
			t.Fatalf("expected error")
		}
	})
	t.Run("nothing on a terminal", func(t *testing.T) {
		if _, err := resolveImagePayload("", "", strings.NewReader("")); err == nil {
			t.Fatalf("expected error")
		}
	})
	t.Run("piped stdin", func(t *testing.T) {
		stdinIsTTY = func() bool { return false }
		defer func() { stdinIsTTY = func() bool { return true } }()
		got, err := resolveImagePayload("", "", strings.NewReader(string(image)))
		if err != nil || got != want {
			t.Fatalf("got %q, %v", got, err)
		}
	})
	t.Run("missing file", func(t *testing.T) {
		if _, err := resolveImagePayload("", filepath.Join(t.TempDir(), "none.png"), nil); err == nil {
			t.Fatalf("expected error")
		}
	})
}
