package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSink_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tf.log")
	s, err := NewSink(Options{File: path, Quiet: true})
	if err != nil {
		t.Fatalf("NewSink() failed: %v", err)
	}

	s.Logger("watcher").Printf("Watching %s", "/code")
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "[watcher] ") || !strings.Contains(string(data), "Watching /code") {
		t.Errorf("log content = %q", data)
	}
}

func TestSink_Discard(t *testing.T) {
	s, err := NewSink(Options{Quiet: true})
	if err != nil {
		t.Fatalf("NewSink() failed: %v", err)
	}
	s.Logger("server").Println("dropped")
	if err := s.Close(); err != nil {
		t.Errorf("Close() without a file failed: %v", err)
	}
}
