package ingest

import (
	"context"
	"fmt"

	"github.com/nxadm/tail"
)

// LogLine represents a raw line from a log source
type LogLine struct {
	Source  string
	Number  int // 1-based
	Content string
	Err     error
}

// FileReader reads one exported log file from start to EOF
type FileReader struct {
	path string
	t    *tail.Tail
}

// NewFileReader creates a new reader for a path
func NewFileReader(path string) *FileReader {
	return &FileReader{
		path: path,
	}
}

// Start opens the file and returns a channel of its lines. The channel is
// closed at EOF or when ctx is done.
func (f *FileReader) Start(ctx context.Context) (<-chan LogLine, error) {
	config := tail.Config{
		Follow:    false,
		ReOpen:    false,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	}

	t, err := tail.TailFile(f.path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", f.path, err)
	}
	f.t = t

	out := make(chan LogLine)

	go func() {
		defer close(out)
		n := 0
		for line := range t.Lines {
			n++
			ll := LogLine{Source: f.path, Number: n, Err: line.Err}
			if line.Err == nil {
				ll.Content = line.Text
			}
			select {
			case out <- ll:
			case <-ctx.Done():
				// tail blocks on an unread Lines channel
				for range t.Lines {
				}
				return
			}
		}
	}()

	return out, nil
}

// Stop releases the underlying file
func (f *FileReader) Stop() error {
	if f.t != nil {
		return f.t.Stop()
	}
	return nil
}
