package ingest

import (
	"context"
	"errors"
	"fmt"

	"loggedin/internal/event"
	"loggedin/internal/logging"
	"loggedin/internal/metrics"
	"loggedin/internal/parser"
)

// Batch is the parsed content of one or more log files
type Batch struct {
	Records   []event.Record
	Skipped   int // blank, comment and header lines
	Malformed int
}

// ReadBatch parses every line of every path in order. Malformed lines are
// counted and dropped unless strict is set, in which case the first one
// aborts the batch.
func ReadBatch(ctx context.Context, paths []string, p parser.Parser, strict bool) (Batch, error) {
	var b Batch
	for _, path := range paths {
		if err := readFile(ctx, path, p, strict, &b); err != nil {
			return Batch{}, err
		}
	}
	return b, nil
}

func readFile(ctx context.Context, path string, p parser.Parser, strict bool, b *Batch) error {
	log := logging.For("ingest")

	ctx, cancel := context.WithCancel(ctx)
	r := NewFileReader(path)
	lines, err := r.Start(ctx)
	if err != nil {
		cancel()
		return err
	}
	defer func() {
		cancel()
		_ = r.Stop()
	}()

	before := len(b.Records)
	for line := range lines {
		if line.Err != nil {
			return fmt.Errorf("failed to read %s:%d: %w", line.Source, line.Number, line.Err)
		}

		rec, err := p.Parse(line.Content)
		switch {
		case err == nil:
			b.Records = append(b.Records, rec)
		case errors.Is(err, parser.ErrSkip):
			b.Skipped++
		case errors.Is(err, event.ErrMalformedRecord):
			b.Malformed++
			metrics.MalformedRecords.Inc()
			if strict {
				return fmt.Errorf("%s:%d: %w", line.Source, line.Number, err)
			}
			log.Warn().Str("file", line.Source).Int("line", line.Number).Err(err).Msg("skipping malformed record")
		default:
			return fmt.Errorf("failed to parse %s:%d: %w", line.Source, line.Number, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log.Debug().Str("file", path).Int("records", len(b.Records)-before).Msg("file read")
	return nil
}
