//go:build !windows
// +build !windows

package service

// ReportStartupError is a no-op outside Windows; systemd captures stderr.
func ReportStartupError(err error) {}
