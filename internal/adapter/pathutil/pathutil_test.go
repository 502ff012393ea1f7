package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func TestExpand(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	got, err := Expand("~/data/scene.tif")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if want := filepath.Join(home, "data", "scene.tif"); got != want {
		t.Errorf("Expand(~/data/scene.tif) = %q, want %q", got, want)
	}
}

func TestExpandRelative(t *testing.T) {
	got, err := Expand("scene.tif")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("Expand(scene.tif) = %q, want an absolute path", got)
	}
	if filepath.Base(got) != "scene.tif" {
		t.Errorf("base name changed: %q", got)
	}
}

func TestExpandAbsoluteUnchanged(t *testing.T) {
	p := filepath.Join(t.TempDir(), "scene.tif")
	got, err := Expand(p)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != p {
		t.Errorf("Expand(%q) = %q", p, got)
	}
}

func TestExpandErrors(t *testing.T) {
	if _, err := Expand(""); err == nil {
		t.Error("expected an error for an empty path")
	}
	// go-homedir does not expand other users' home directories.
	if _, err := Expand("~someone/scene.tif"); err == nil {
		t.Error("expected an error for ~user paths")
	}
}
