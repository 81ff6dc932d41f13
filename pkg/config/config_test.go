package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name" toml:"name"`
	Port  int    `yaml:"port" toml:"port"`
	Dir   string `yaml:"dir" toml:"dir"`
	valid bool
}

func (s *sample) Validate() error {
	s.valid = true
	if s.Port == 0 {
		return os.ErrInvalid
	}
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("ENIGMA_TEST_DIR", "/srv/scores")
	path := writeFile(t, "config.yaml", "name: enigma\nport: 9000\ndir: ${ENIGMA_TEST_DIR}\n")
	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "enigma" || s.Port != 9000 || s.Dir != "/srv/scores" {
		t.Errorf("got %+v", s)
	}
	if !s.valid {
		t.Error("Validate was not called")
	}
}

func TestLoadTOML(t *testing.T) {
	t.Setenv("ENIGMA_TEST_DIR", "/srv/scores")
	path := writeFile(t, "config.toml", "name = \"enigma\"\nport = 9001\ndir = \"${ENIGMA_TEST_DIR}\"\n")
	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Port != 9001 || s.Dir != "/srv/scores" {
		t.Errorf("got %+v", s)
	}
}

func TestLoadValidationError(t *testing.T) {
	path := writeFile(t, "config.yaml", "name: enigma\n")
	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeFile(t, "default.yaml", "port: 7000\n")
	var s sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Port != 7000 {
		t.Errorf("port = %d", s.Port)
	}
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &s); err == nil {
		t.Error("missing file without default should fail")
	}
}
