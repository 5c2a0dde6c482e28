package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_CarriesDocumentMarkers(t *testing.T) {
	p := Default()
	if strings.Count(p, "<documents>") != 1 || strings.Count(p, "</documents>") != 1 {
		t.Fatalf("embedded prompt must carry exactly one documents marker pair")
	}
	if strings.Index(p, "<documents>") > strings.Index(p, "</documents>") {
		t.Error("markers out of order in embedded prompt")
	}
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	if Load("") != Default() {
		t.Error("empty path must return the embedded default")
	}
}

func TestLoad_OverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.md")
	want := "Custom prompt.\n<documents>\n</documents>\n"
	if err := os.WriteFile(path, []byte(want), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := Load(path); got != want {
		t.Errorf("expected override contents, got %q", got)
	}
}

func TestLoad_MissingOverrideFallsBack(t *testing.T) {
	if Load(filepath.Join(t.TempDir(), "absent.md")) != Default() {
		t.Error("missing override must fall back to the embedded default")
	}
}
