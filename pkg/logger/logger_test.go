package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsBadSettings(t *testing.T) {
	tests := []struct {
		level  string
		format string
		ok     bool
	}{
		{"info", "console", true},
		{"debug", "json", true},
		{"verbose", "console", false},
		{"info", "xml", false},
	}
	for _, tc := range tests {
		_, err := New(Config{Level: tc.level, Format: tc.format})
		if (err == nil) != tc.ok {
			t.Errorf("%s/%s: got error %v, expected ok=%v", tc.level, tc.format, err, tc.ok)
		}
	}
}

func TestFileOnlyLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airport.log")
	log, err := New(Config{Level: "info", Format: "console", File: path, MaxSizeMB: 1, DisableStdout: true})
	if err != nil {
		t.Fatal(err)
	}

	log.Named("traffic").WithTask("traffic").Warn("Deadline missed", Int64("misses", 3))
	log.Debug("below level")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{`"msg":"Deadline missed"`, `"logger":"traffic"`, `"task":"traffic"`, `"misses":3`} {
		if !strings.Contains(out, want) {
			t.Errorf("log file missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "below level") {
		t.Errorf("debug entry written at info level")
	}
}

func TestNoSinksIsNop(t *testing.T) {
	log, err := New(Config{Level: "info", Format: "console", DisableStdout: true})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("dropped")
}
