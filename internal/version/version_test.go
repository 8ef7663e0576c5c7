package version

import "testing"

func TestString(t *testing.T) {
	oldVersion, oldSHA := Version, GitSHA
	defer func() { Version, GitSHA = oldVersion, oldSHA }()

	Version, GitSHA = "0.1.0", "abc1234"
	if got := String(); got != "0.1.0 (abc1234)" {
		t.Errorf("String() = %q", got)
	}
}
