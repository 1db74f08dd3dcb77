package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loggedin/internal/event"
	"loggedin/internal/parser"
)

func writeLog(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func TestReadBatch_Lenient(t *testing.T) {
	path := writeLog(t, "security.log",
		"# export from DC01",
		"EventID=4625 TimeCreated=20230101T010000Z Computer=WS02 User=hacker@bad.com FailureReason=0xC000006D",
		"",
		"garbage line",
		"EventID=4624 TimeCreated=20230101T090000Z Computer=WS01 User=john.doe@domain.com LogonType=2",
	)

	b, err := ReadBatch(context.Background(), []string{path}, parser.NewWindowsParser(), false)
	require.NoError(t, err)

	require.Len(t, b.Records, 2)
	assert.Equal(t, 2, b.Skipped)
	assert.Equal(t, 1, b.Malformed)
	assert.Equal(t, "hacker@bad.com", b.Records[0].User())
	assert.Equal(t, event.SuccessfulLogin, b.Records[1].ID())
}

func TestReadBatch_StrictAbortsOnMalformed(t *testing.T) {
	path := writeLog(t, "security.log",
		"EventID=4624 TimeCreated=20230101T090000Z Computer=WS01 User=john",
		"EventID=4624 TimeCreated=nope Computer=WS01 User=john",
	)

	_, err := ReadBatch(context.Background(), []string{path}, parser.NewWindowsParser(), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, event.ErrMalformedRecord))
	assert.Contains(t, err.Error(), "security.log:2")
}

func TestReadBatch_MultipleFilesKeepOrder(t *testing.T) {
	a := writeLog(t, "a.csv", "timestamp,event_id,user,host", "2023-01-01 10:00:00,4624,alice,WS01")
	b := writeLog(t, "b.csv", "2023-01-01 09:00:00,4634,bob,WS02")

	batch, err := ReadBatch(context.Background(), []string{a, b}, parser.NewCSVParser(), true)
	require.NoError(t, err)

	require.Len(t, batch.Records, 2)
	assert.Equal(t, "alice", batch.Records[0].User())
	assert.Equal(t, "bob", batch.Records[1].User())
	assert.Equal(t, 1, batch.Skipped)
}

func TestReadBatch_MissingFile(t *testing.T) {
	_, err := ReadBatch(context.Background(), []string{filepath.Join(t.TempDir(), "absent.log")}, parser.NewWindowsParser(), false)
	assert.Error(t, err)
}

func TestReadBatch_Cancelled(t *testing.T) {
	path := writeLog(t, "security.log", "EventID=4624 TimeCreated=20230101T090000Z Computer=WS01 User=john")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadBatch(ctx, []string{path}, parser.NewWindowsParser(), false)
	assert.ErrorIs(t, err, context.Canceled)
}
