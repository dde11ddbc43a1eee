package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("// stub\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDiscoverFilesFindsSourceAndHeaders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/foo.cc")
	writeFile(t, root, "include/foo.h")
	writeFile(t, root, "README.md")

	files, err := discoverFiles(root, "", false)
	if err != nil {
		t.Fatalf("discoverFiles failed: %v", err)
	}
	want := []string{"include/foo.h", "src/foo.cc"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("got %v, want %v", files, want)
	}
}

func TestDiscoverFilesMainFileOnlySkipsHeaders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/foo.cc")
	writeFile(t, root, "include/foo.h")

	files, err := discoverFiles(root, "", true)
	if err != nil {
		t.Fatalf("discoverFiles failed: %v", err)
	}
	want := []string{"src/foo.cc"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("got %v, want %v", files, want)
	}
}

func TestDiscoverFilesAppliesAllowRegex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/foo.cc")
	writeFile(t, root, "third_party/vendor.cc")

	files, err := discoverFiles(root, "^src/", false)
	if err != nil {
		t.Fatalf("discoverFiles failed: %v", err)
	}
	want := []string{"src/foo.cc"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("got %v, want %v", files, want)
	}
}

func TestFilterUnderDirsRestrictsToConfiguredPaths(t *testing.T) {
	files := []string{"tests/a_test.cc", "src/a.cc", "tests/sub/b_test.cc"}
	got := filterUnderDirs(files, []string{"tests"})
	want := []string{"tests/a_test.cc", "tests/sub/b_test.cc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFilterUnderDirsNoRestrictionReturnsAll(t *testing.T) {
	files := []string{"a.cc", "b.cc"}
	got := filterUnderDirs(files, nil)
	if !reflect.DeepEqual(got, files) {
		t.Errorf("got %v, want %v", got, files)
	}
}
