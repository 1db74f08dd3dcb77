package parser

import (
	"encoding/csv"
	"fmt"
	"strings"

	"loggedin/internal/event"
)

// CSVParser reads timestamp,event_id,user,host rows
type CSVParser struct{}

// NewCSVParser creates a new CSV row parser
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Parse implements the Parser interface. A header row starting with
// "timestamp" is skipped.
func (p *CSVParser) Parse(line string) (event.Record, error) {
	if skippable(line) {
		return event.Record{}, ErrSkip
	}

	r := csv.NewReader(strings.NewReader(line))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return event.Record{}, fmt.Errorf("%w: %v", event.ErrMalformedRecord, err)
	}
	if len(fields) < 4 {
		return event.Record{}, fmt.Errorf("%w: expected 4 columns, got %d", event.ErrMalformedRecord, len(fields))
	}
	if strings.EqualFold(strings.TrimSpace(fields[0]), "timestamp") {
		return event.Record{}, ErrSkip
	}

	return event.Parse(fields[0], fields[1], fields[2], fields[3])
}
