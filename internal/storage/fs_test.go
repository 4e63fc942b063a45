package storage

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func tempDataset(t *testing.T, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewFS(dir)
}

func TestRead(t *testing.T) {
	s := tempDataset(t, map[string]string{"a/b/c.yaml": "deep"})
	got, err := s.Read("a/b/c.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("missing.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestList(t *testing.T) {
	s := tempDataset(t, map[string]string{
		"a.yaml":     "a",
		"sub/b.json": "b",
		"readme.txt": "not a dataset",
	})

	items, err := s.List(func(name string) bool { return !strings.HasSuffix(name, ".txt") })
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	slices.Sort(items)
	if !slices.Equal(items, []string{"a.yaml", "sub/b.json"}) {
		t.Errorf("items = %v", items)
	}

	all, _ := s.List(nil)
	if len(all) != 3 {
		t.Errorf("nil matcher should list every file, got %v", all)
	}
}

func TestListMissingRoot(t *testing.T) {
	s := NewFS(filepath.Join(t.TempDir(), "not-yet"))
	if _, err := s.List(nil); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempDataset(t, nil)

	cases := []string{
		"../../etc/passwd",
		"../outside.yaml",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestRel(t *testing.T) {
	s := tempDataset(t, nil)

	name, err := s.Rel(filepath.Join(s.Root(), "team", "people.yaml"))
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	if name != "team/people.yaml" {
		t.Errorf("name = %q", name)
	}
	if _, err := s.Rel(filepath.Join(filepath.Dir(s.Root()), "elsewhere.yaml")); err == nil {
		t.Error("expected error for a path outside the root")
	}
}

func TestNewFS_ResolvesRelativeRoot(t *testing.T) {
	s := NewFS("data")
	if !filepath.IsAbs(s.Root()) {
		t.Errorf("root should be absolute, got %q", s.Root())
	}
}
