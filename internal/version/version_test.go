package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	origVersion, origSHA := Version, GitSHA
	defer func() { Version, GitSHA = origVersion, origSHA }()

	Version, GitSHA = "1.2.3", "abc1234"
	s := String()
	for _, want := range []string{"teleop-bridge 1.2.3", "git abc1234", "go"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
