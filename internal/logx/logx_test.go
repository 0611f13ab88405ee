package logx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogfAppendsTimestampedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "access.log")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	l.Logf("%s %s %d %s", "GET", "/missing", 404, "Not Found")
	l.Logf("%s %s %d %s", "GET", "/index.html", 200, "OK")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	if !strings.HasSuffix(lines[0], "GET /missing 404 Not Found") {
		t.Fatalf("expected line to end in scenario text, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[0], "[") {
		t.Fatalf("expected timestamp prefix, got %q", lines[0])
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c", "error.log")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("expected parent directory to exist: %v", err)
	}
}
