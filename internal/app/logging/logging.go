package logging

import (
	"io"
	"log"
	"os"
)

const flags = log.Ldate | log.Ltime | log.Lshortfile

// Loggers bundles the error, warn and info loggers shared by the app packages.
type Loggers struct {
	Error *log.Logger
	Warn  *log.Logger
	Info  *log.Logger
}

// New writes all three levels to w.
func New(w io.Writer) *Loggers {
	return &Loggers{
		Error: log.New(w, "ERROR: ", flags),
		Warn:  log.New(w, "WARN: ", flags),
		Info:  log.New(w, "INFO: ", flags),
	}
}

// Open appends to the log file at path, creating it if needed.
func Open(path string) (*Loggers, io.Closer, error) {
	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, nil, err
	}
	return New(logFile), logFile, nil
}

// Discard drops everything. Used when no loggers are injected.
func Discard() *Loggers {
	return New(io.Discard)
}

// OrDiscard returns l, or a discarding set when l is nil.
func OrDiscard(l *Loggers) *Loggers {
	if l == nil {
		return Discard()
	}
	return l
}
