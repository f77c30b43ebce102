// Package testutils holds fakes shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"

	"github.com/nfrund/chatroom/internal/config"
	"github.com/nfrund/chatroom/internal/logging"
)

// ConfigForTests loads the .env.test file and returns a valid config whose
// session directory is a per-test temporary directory.
func ConfigForTests(t *testing.T) *config.Config {
	t.Helper()

	// 1. Find project root by looking for go.mod to reliably locate .env.test
	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			break
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}

	// 2. Manually read the .env.test file.
	env, err := godotenv.Read(filepath.Join(path, ".env.test"))
	if err != nil {
		t.Fatalf("failed to load .env.test file: %v", err)
	}

	// 3. Use t.Setenv to set the environment variables for this test.
	for key, value := range env {
		t.Setenv(key, value)
	}
	t.Setenv("CHAT_SESSION_DIR", t.TempDir())

	logging.New()

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		t.Fatalf("invalid test configuration: %v", err)
	}
	return cfg
}
