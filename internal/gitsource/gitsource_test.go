package gitsource

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocalPath(t *testing.T) {
	base := filepath.Join("data", "repos")
	testCases := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{"https://github.com/owner/words.git", filepath.Join(base, "github.com", "owner", "words"), false},
		{"https://gitlab.example.org:8443/team/lists/latin", filepath.Join(base, "gitlab.example.org", "team", "lists", "latin"), false},
		{"git@github.com:owner/words.git", filepath.Join(base, "github.com", "owner", "words"), false},
		{"ssh://git@github.com/owner/words.git", filepath.Join(base, "github.com", "owner", "words"), false},
		{"https://github.com/", "", true},
		{"not a url", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			got, err := LocalPath(base, tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected an error for %s, but got path %s", tc.url, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("LocalPath() returned an unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected path '%s', but got '%s'", tc.expected, got)
			}
		})
	}
}

func TestIsURL(t *testing.T) {
	for path, want := range map[string]bool{
		"https://github.com/owner/words.git": true,
		"git@github.com:owner/words.git":     true,
		"ssh://git@host/owner/words":         true,
		"/home/me/words":                     false,
		"./words":                            false,
		"./missing/words.git":                true,
		"./notes/me@home:words":              false,
	} {
		if got := IsURL(path); got != want {
			t.Errorf("IsURL(%q) = %v, expected %v", path, got, want)
		}
	}
}

func TestIsURLLocalDotGitDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "latin.git")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if IsURL(dir) {
		t.Errorf("Expected existing directory %s to be local, but it was treated as a remote", dir)
	}
}
