package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// StartupErrorFile is the file name written by WriteStartupErrorFile.
const StartupErrorFile = "startup-error.log"

// WriteStartupErrorFile records a startup error in logDir. Only the most
// recent error is kept.
func WriteStartupErrorFile(logDir string, err error) {
	_ = os.MkdirAll(logDir, 0755)

	f, ferr := os.Create(filepath.Join(logDir, StartupErrorFile))
	if ferr != nil {
		return
	}
	defer f.Close()

	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] STARTUP ERROR\n%v\n", ts, err)
}

// ReportStartupFailure sends a startup error everywhere an operator might
// look before logging is up: the event log, the startup error file and stderr.
func ReportStartupFailure(logDir string, stderr io.Writer, err error) {
	ReportStartupError(err)
	WriteStartupErrorFile(logDir, err)
	fmt.Fprintf(stderr, "hostwatch: %v\n", err)
}
