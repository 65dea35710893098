package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	for _, name := range EnvNames {
		t.Setenv(name, "")
	}
}

func TestResolvePriority(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, "estat.env")
	if err := os.WriteFile(dotenv, []byte("ESTAT_API_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	type testCase struct {
		explicit string
		env      map[string]string
		path     string
		expected string
	}

	cases := []testCase{
		{"explicit", map[string]string{"ESTAT_API_KEY": "env"}, dotenv, "explicit"},
		{"", map[string]string{"ESTAT_API_KEY": "last", "E_STAT_APPLICATION_ID": "first"}, dotenv, "first"},
		{"", map[string]string{"E_STAT_API_KEY": "env"}, dotenv, "env"},
		{"", nil, dotenv, "from-file"},
		{"  ", nil, dotenv, "from-file"},
	}

	for _, c := range cases {
		clearEnv(t)
		for k, v := range c.env {
			t.Setenv(k, v)
		}

		result, err := Resolve(c.explicit, c.path)
		if err != nil {
			t.Fatal(err)
		}
		if result != c.expected {
			t.Errorf("Got %v, wanted %v", result, c.expected)
		}
	}
}

func TestResolveMissing(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.env")
	if err := os.WriteFile(empty, []byte("OTHER=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{empty, filepath.Join(dir, "missing.env")} {
		if _, err := Resolve("", path); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("Got %v, wanted %v", err, ErrNoAPIKey)
		}
	}
}

func TestResolveDefaultFiles(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("E_STAT_APPLICATION_ID=local\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	old := DefaultDotenvFiles
	DefaultDotenvFiles = []string{filepath.Join(dir, ".env"), filepath.Join(dir, ".env.local")}
	defer func() { DefaultDotenvFiles = old }()

	result, err := Resolve("", "")
	if err != nil {
		t.Fatal(err)
	}
	if result != "local" {
		t.Errorf("Got %v, wanted %v", result, "local")
	}
}
