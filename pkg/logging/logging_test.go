package logging

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
)

var linePattern = regexp.MustCompile(
	`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[SEED:6000\] INFO - listening$`)

func TestLineFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(RoleSeed, 6000, &buf)

	l.Info("listening")

	line := strings.TrimRight(buf.String(), "\n")
	if !linePattern.MatchString(line) {
		t.Errorf("log line %q does not match required format", line)
	}
}

func TestWarningLevelName(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(RolePeer, 7000, &buf)

	l.Warnf("cannot reach seed %s", "127.0.0.1:6002")

	out := buf.String()
	if !strings.Contains(out, "[PEER:7000] WARNING - cannot reach seed 127.0.0.1:6002") {
		t.Errorf("unexpected warning line: %q", out)
	}
}

func TestDebugSuppressed(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(RolePeer, 7000, &buf)

	l.Debug("ping sent")

	if buf.Len() != 0 {
		t.Errorf("debug output should be suppressed, got %q", buf.String())
	}
}
