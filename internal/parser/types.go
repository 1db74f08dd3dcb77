package parser

import (
	"errors"
	"fmt"
	"strings"

	"loggedin/internal/event"
)

// ErrSkip marks lines that carry no event (blank lines, comments, CSV headers).
var ErrSkip = errors.New("line skipped")

// Parser turns one raw log line into an event record
type Parser interface {
	Parse(line string) (event.Record, error)
}

const (
	FormatKV  = "kv"
	FormatCSV = "csv"
)

// ForFormat returns the parser for a configured input format.
func ForFormat(format string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatKV:
		return NewWindowsParser(), nil
	case FormatCSV:
		return NewCSVParser(), nil
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}

func skippable(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || strings.HasPrefix(line, "#")
}
