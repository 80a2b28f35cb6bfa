package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Extra string `yaml:"extra"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func TestParseKeepsDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "studio")
	s := sample{Port: 80, Extra: "kept"}
	if err := Parse([]byte("name: ${SAMPLE_NAME}\n"), &s); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Name != "studio" || s.Port != 80 || s.Extra != "kept" {
		t.Errorf("sample = %+v", s)
	}
}

func TestParseValidates(t *testing.T) {
	s := sample{Port: 80}
	err := Parse([]byte("port: 0\n"), &s)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v", err)
	}
	if err := Parse([]byte("port: [\n"), &s); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()

	s := sample{Port: 1}
	read, err := LoadOptional(filepath.Join(dir, "missing.yaml"), &s)
	if err != nil || read {
		t.Errorf("missing file = %v, %v", read, err)
	}

	bad := sample{}
	if _, err := LoadOptional(filepath.Join(dir, "missing.yaml"), &bad); err == nil {
		t.Error("invalid defaults accepted")
	}

	path := filepath.Join(dir, "c.yaml")
	if err := os.WriteFile(path, []byte("port: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	read, err = LoadOptional(path, &s)
	if err != nil || !read || s.Port != 9 {
		t.Errorf("existing file = %v, %v, %+v", read, err, s)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Error("missing file loaded")
	}
}
