// Package version provides build version information for the wavscribe
// binary.
//
// Version, git commit, branch, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/wavscribe/version.Version=1.0.0" ./cmd/wavscribe
package version
