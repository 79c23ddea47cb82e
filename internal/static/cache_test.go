package static

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileReadThrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "RapidControl.html")
	if err := os.WriteFile(path, []byte("<html>v1</html>"), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewCache(dir)

	data, err := c.File("RapidControl.html")
	if err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if string(data) != "<html>v1</html>" {
		t.Errorf("unexpected contents: %q", data)
	}

	// Rewrite the file on disk; the cache must keep serving the first read.
	if err := os.WriteFile(path, []byte("<html>v2</html>"), 0644); err != nil {
		t.Fatal(err)
	}
	data, err = c.File("RapidControl.html")
	if err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if string(data) != "<html>v1</html>" {
		t.Errorf("expected memoised contents, got %q", data)
	}
}

func TestFileMissing(t *testing.T) {
	c := NewCache(t.TempDir())
	if _, err := c.File("nope.html"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFailedReadNotMemoised(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir)

	if _, err := c.File("late.html"); err == nil {
		t.Fatal("expected error before file exists")
	}

	if err := os.WriteFile(filepath.Join(dir, "late.html"), []byte("here"), 0644); err != nil {
		t.Fatal(err)
	}
	data, err := c.File("late.html")
	if err != nil {
		t.Fatalf("read after create failed: %v", err)
	}
	if string(data) != "here" {
		t.Errorf("unexpected contents: %q", data)
	}
}

func TestTraversalStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "public")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewCache(root)
	if _, err := c.File("../secret.txt"); err == nil {
		t.Error("path traversal escaped the root")
	}
	for _, p := range []string{"", "/", "."} {
		if _, err := c.File(p); err == nil {
			t.Errorf("expected rejection for path %q", p)
		}
	}
}

func TestLeadingSlashStripped(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("js"), 0644); err != nil {
		t.Fatal(err)
	}
	c := NewCache(dir)
	if _, err := c.File("/app.js"); err != nil {
		t.Errorf("leading slash should be accepted: %v", err)
	}
}
