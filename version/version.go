// Package version holds build metadata injected at link time.
package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags at build time, e.g.
//
//	go build -ldflags "-X biblio/version.GitRelease=v0.3.0 -X biblio/version.GitCommit=$(git rev-parse HEAD)"
var (
	// GitRelease is the release tag this binary was built from.
	GitRelease = "dev"

	// GitCommit is the commit hash this binary was built from.
	GitCommit = "unknown"

	// GitCommitDate is the date of the commit.
	GitCommitDate = "unknown"
)

// GoInfo describes the Go toolchain and platform of the build.
var GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
