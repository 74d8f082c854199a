package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_MissingFileIsNoop(t *testing.T) {
	t.Parallel()
	if err := LoadFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("LoadFile missing file error: %v", err)
	}
}

func TestLoadFile_LoadsValuesAndPreservesExisting(t *testing.T) {
	tempDir := t.TempDir()
	envPath := filepath.Join(tempDir, ".env")
	content := "" +
		"# comment\n" +
		"VOCAIYZE_TEST_FROM_FILE=loaded\n" +
		"VOCAIYZE_TEST_QUOTED=\"hello # world\" # trailing\n" +
		"export VOCAIYZE_TEST_EXPORTED=ok\n" +
		"VOCAIYZE_TEST_INLINE=7s # capture window\n" +
		"VOCAIYZE_TEST_EXISTING=from_file\n" +
		"not a pair\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("VOCAIYZE_TEST_EXISTING", "already_set")
	for _, k := range []string{"VOCAIYZE_TEST_FROM_FILE", "VOCAIYZE_TEST_QUOTED", "VOCAIYZE_TEST_EXPORTED", "VOCAIYZE_TEST_INLINE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	if err := LoadFile(envPath); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	want := map[string]string{
		"VOCAIYZE_TEST_FROM_FILE": "loaded",
		"VOCAIYZE_TEST_QUOTED":    "hello # world",
		"VOCAIYZE_TEST_EXPORTED":  "ok",
		"VOCAIYZE_TEST_INLINE":    "7s",
		"VOCAIYZE_TEST_EXISTING":  "already_set",
	}
	for k, v := range want {
		if got := os.Getenv(k); got != v {
			t.Fatalf("%s=%q, want %q", k, got, v)
		}
	}
}

func TestLoadFiles_EarlierFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, ".env.local")
	second := filepath.Join(dir, ".env")
	_ = os.WriteFile(first, []byte("VOCAIYZE_TEST_ORDER=local\n"), 0o600)
	_ = os.WriteFile(second, []byte("VOCAIYZE_TEST_ORDER=shared\nVOCAIYZE_TEST_ONLY_SHARED=yes\n"), 0o600)
	for _, k := range []string{"VOCAIYZE_TEST_ORDER", "VOCAIYZE_TEST_ONLY_SHARED"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	if err := LoadFiles(first, filepath.Join(dir, "missing"), second); err != nil {
		t.Fatalf("LoadFiles error: %v", err)
	}
	if got := os.Getenv("VOCAIYZE_TEST_ORDER"); got != "local" {
		t.Fatalf("ORDER=%q, want local", got)
	}
	if got := os.Getenv("VOCAIYZE_TEST_ONLY_SHARED"); got != "yes" {
		t.Fatalf("ONLY_SHARED=%q", got)
	}
}
