// Package version reports the build version of the traverse module.
//
// Version and Commit can be set at link time:
//
//	go build -ldflags "-X github.com/kbukum/traverse/version.Version=1.2.0"
//
// When they are not, Get falls back to the VCS stamp the go tool embeds.
package version
