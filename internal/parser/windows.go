package parser

import (
	"fmt"
	"regexp"

	"loggedin/internal/event"
)

// WindowsParser extracts events from key=value Windows Security log exports
type WindowsParser struct {
	reEvent *regexp.Regexp
}

// NewWindowsParser creates a new Windows event line parser
func NewWindowsParser() *WindowsParser {
	return &WindowsParser{
		// EventID=4625 TimeCreated=20230101T120100Z Computer=WS01 User=john@domain.com LogonType=3
		reEvent: regexp.MustCompile(`^\s*EventID=(\d+)\s+TimeCreated=(\S+)\s+Computer=(\S+)\s+User=(\S+)`),
	}
}

// Parse implements the Parser interface. Trailing fields are ignored.
func (p *WindowsParser) Parse(line string) (event.Record, error) {
	if skippable(line) {
		return event.Record{}, ErrSkip
	}

	matches := p.reEvent.FindStringSubmatch(line)
	if len(matches) < 5 {
		return event.Record{}, fmt.Errorf("%w: line does not match EventID/TimeCreated/Computer/User layout", event.ErrMalformedRecord)
	}

	return event.Parse(matches[2], matches[1], matches[4], matches[3])
}
