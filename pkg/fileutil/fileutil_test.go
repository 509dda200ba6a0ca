package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSearchPathsOptional(t *testing.T) {
	tmpDir := t.TempDir()

	// Create test file
	file1 := filepath.Join(tmpDir, "file1.txt")
	if err := os.WriteFile(file1, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{
			"finds existing file",
			[]string{file1},
			file1,
		},
		{
			"returns first existing file",
			[]string{filepath.Join(tmpDir, "nonexistent.txt"), file1},
			file1,
		},
		{
			"returns empty string when not found",
			[]string{filepath.Join(tmpDir, "nonexistent.txt")},
			"",
		},
		{
			"handles empty path list",
			[]string{},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchPathsOptional(tt.paths)
			if got != tt.want {
				t.Errorf("SearchPathsOptional() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultConfigPaths(t *testing.T) {
	paths := DefaultConfigPaths("peoplebox.yaml")

	if len(paths) != 3 {
		t.Errorf("DefaultConfigPaths() returned %d paths, want 3", len(paths))
	}

	// Check that paths contain the filename
	for i, path := range paths {
		if !strings.Contains(path, "peoplebox.yaml") {
			t.Errorf("DefaultConfigPaths()[%d] = %v, should contain 'peoplebox.yaml'", i, path)
		}
	}

	// Check that the system path is /etc/peoplebox/...
	if !strings.HasPrefix(paths[2], "/etc/peoplebox") {
		t.Errorf("DefaultConfigPaths()[2] should start with /etc/peoplebox, got %v", paths[2])
	}
}

func TestFindConfigOptional(t *testing.T) {
	if got := FindConfigOptional("definitely-not-present.yaml"); got != "" {
		t.Errorf("FindConfigOptional() = %v, want empty string", got)
	}
}
