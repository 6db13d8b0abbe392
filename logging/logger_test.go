package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New(Options{File: path, Debug: true})
	log.Debugw("room tick", "room", "room-1", "players", 2)
	Sync(log)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(raw)
	if !strings.Contains(out, "DEBUG") || !strings.Contains(out, "room tick") || !strings.Contains(out, `"players": 2`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestInfoLevelDropsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New(Options{File: path})
	log.Debug("hidden")
	log.Info("shown")
	Sync(log)

	raw, _ := os.ReadFile(path)
	if strings.Contains(string(raw), "hidden") || !strings.Contains(string(raw), "shown") {
		t.Fatalf("unexpected log output: %s", raw)
	}
}
