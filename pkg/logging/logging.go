// Package logging wires logrus into the event-log discipline shared by every
// node: each line goes to stdout and is appended to a shared event log file
// in the exact format
//
//	[YYYY-MM-DD HH:MM:SS] [<ROLE>:<port>] <LEVEL> - <message>
//
// logrus serialises writes internally, so lines from concurrent tasks never
// interleave.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Node roles as they appear in the log prefix.
const (
	RoleSeed = "SEED"
	RolePeer = "PEER"
)

// DefaultEventLog is the shared append-only event log file.
const DefaultEventLog = "outputfile.txt"

const timeLayout = "2006-01-02 15:04:05"

// lineFormatter renders the fixed event-log line format.
type lineFormatter struct {
	role string
	port int
}

func (f *lineFormatter) Format(e *log.Entry) ([]byte, error) {
	level := strings.ToUpper(e.Level.String())
	return []byte(fmt.Sprintf("[%s] [%s:%d] %s - %s\n",
		e.Time.Format(timeLayout), f.role, f.port, level, e.Message)), nil
}

// NewWithOutput builds a node logger writing to the given sink. Tests use
// this to capture output.
func NewWithOutput(role string, port int, out io.Writer) *log.Logger {
	l := log.New()
	l.SetLevel(log.InfoLevel)
	l.SetFormatter(&lineFormatter{role: strings.ToUpper(role), port: port})
	l.SetOutput(out)
	return l
}

// New builds a node logger writing to stdout and appending to the event log
// at path (DefaultEventLog when path is empty).
func New(role string, port int, path string) (*log.Logger, error) {
	if path == "" {
		path = DefaultEventLog
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "logging: open event log %s", path)
	}
	return NewWithOutput(role, port, io.MultiWriter(os.Stdout, f)), nil
}
