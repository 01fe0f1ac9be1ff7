// Package version reports the bulkflow build.
//
// Release builds set the version at link time:
//
//	go build -ldflags "-X github.com/kbukum/bulkflow/version.Version=1.2.0" ./cmd/bulkflow
package version
