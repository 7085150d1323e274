package logger

import (
	"log"
	"os"
)

// New returns the plain process logger used during startup, before the
// structured application logger is wired. Fatal exits go through this one.
func New() *log.Logger {
	return log.New(os.Stdout, "attest: ", log.LstdFlags)
}
