package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "backups"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing subdir", filepath.Join(dir, "backups"), false},
		{"new file", filepath.Join(dir, "backups", "bridge.db"), false},
		{"new nested file", filepath.Join(dir, "a", "b", "c.db"), false},
		{"dot dot inside", filepath.Join(dir, "backups", "..", "x.db"), false},
		{"escape", filepath.Join(dir, "..", "x.db"), true},
		{"absolute elsewhere", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathWithinDirectory_SymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(dir, "evil")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := ValidatePathWithinDirectory(filepath.Join(link, "new.db"), dir); err == nil {
		t.Error("expected a symlinked parent pointing outside to be rejected")
	}
}

func TestValidateOutputPath(t *testing.T) {
	if err := ValidateOutputPath(filepath.Join(os.TempDir(), "sample.pcap")); err != nil {
		t.Errorf("temp dir path rejected: %v", err)
	}
	if err := ValidateOutputPath("sample.pcap"); err != nil {
		t.Errorf("relative path in cwd rejected: %v", err)
	}
	if err := ValidateOutputPath("/etc/sample.pcap"); err == nil {
		t.Error("expected /etc path to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                   "unknown",
		"bridge":             "bridge",
		"bridge stats.db":    "bridge_stats.db",
		"../../etc/passwd":   "etc_passwd",
		"a  //  b":           "a_b",
		"...":                "unknown",
		"robot-01_session.1": "robot-01_session.1",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}

	if got := SanitizeFilename(strings.Repeat("x", 300)); len(got) != 128 {
		t.Errorf("expected result capped at 128 bytes, got %d", len(got))
	}
}
