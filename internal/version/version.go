// Package version reports the nebulacalc build.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/andywolf/nebulacalc/internal/version.Version=v0.3.0".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

const name = "nebulacalc"

// Short returns the bare version, e.g. "v0.3.0" or "dev".
func Short() string {
	return Version
}

func shortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}

// Info returns a one-line summary:
// "nebulacalc v0.3.0 (commit: abc1234, built: 2026-01-15T10:30:00Z, go: go1.24.2)".
func Info() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s)",
		name, Version, shortCommit(), BuildDate, runtime.Version())
}

// Full returns the multi-line output of "nebulacalc version -v".
func Full() string {
	return fmt.Sprintf(`%s %s
  Commit:     %s
  Built:      %s
  Go version: %s
  OS/Arch:    %s/%s`,
		name, Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies outgoing requests, e.g. "nebulacalc/v0.3.0 (abc1234)".
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s)", name, Version, shortCommit())
}
