package event

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrMalformedRecord is returned when a record is missing a required field
// or a field cannot be parsed.
var ErrMalformedRecord = errors.New("malformed record")

// ID is a Windows Security event code
type ID uint32

const (
	SuccessfulLogin     ID = 4624
	FailedLogin         ID = 4625
	Logout              ID = 4634
	UserInitiatedLogout ID = 4647
	AdminLogin          ID = 4672
)

var names = map[ID]string{
	SuccessfulLogin:     "Successful Login",
	FailedLogin:         "Failed Login",
	Logout:              "Logout",
	UserInitiatedLogout: "User Initiated Logout",
	AdminLogin:          "Admin Login",
}

// Known reports whether the code belongs to the classified set.
func (id ID) Known() bool {
	_, ok := names[id]
	return ok
}

// Name returns a human readable label, "Unknown" for unclassified codes.
func (id ID) Name() string {
	if n, ok := names[id]; ok {
		return n
	}
	return "Unknown"
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IsLogin reports whether the event counts towards login hour tracking.
func (id ID) IsLogin() bool {
	return id == SuccessfulLogin || id == AdminLogin
}

// Record is one normalized authentication event. It is read-only once built.
type Record struct {
	timestamp time.Time
	id        ID
	user      string
	host      string
}

// New validates the fields and builds a Record.
func New(ts time.Time, id ID, user, host string) (Record, error) {
	user = strings.TrimSpace(user)
	host = strings.TrimSpace(host)

	switch {
	case ts.IsZero():
		return Record{}, fmt.Errorf("%w: timestamp is required", ErrMalformedRecord)
	case id == 0:
		return Record{}, fmt.Errorf("%w: event id is required", ErrMalformedRecord)
	case user == "":
		return Record{}, fmt.Errorf("%w: user is required", ErrMalformedRecord)
	case host == "":
		return Record{}, fmt.Errorf("%w: host is required", ErrMalformedRecord)
	}

	return Record{timestamp: ts, id: id, user: user, host: host}, nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(ts time.Time, id ID, user, host string) Record {
	r, err := New(ts, id, user, host)
	if err != nil {
		panic(err)
	}
	return r
}

// Parse builds a Record from raw string fields as found in exported logs.
func Parse(ts, id, user, host string) (Record, error) {
	t, err := ParseTimestamp(ts)
	if err != nil {
		return Record{}, err
	}
	code, err := strconv.ParseUint(strings.TrimSpace(id), 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("%w: invalid event id %q", ErrMalformedRecord, id)
	}
	return New(t, ID(code), user, host)
}

var timestampLayouts = []string{
	"20060102T150405Z",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

// ParseTimestamp accepts the Windows compact form (20230101T120000Z) as well
// as RFC3339 and plain date-time layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: timestamp is required", ErrMalformedRecord)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable timestamp %q", ErrMalformedRecord, s)
}

func (r Record) Timestamp() time.Time { return r.timestamp }
func (r Record) ID() ID               { return r.id }
func (r Record) User() string         { return r.user }
func (r Record) Host() string         { return r.host }

// Hour is the hour-of-day component of the timestamp.
func (r Record) Hour() int { return r.timestamp.Hour() }

type recordJSON struct {
	Timestamp time.Time `json:"timestamp"`
	EventID   ID        `json:"event_id"`
	User      string    `json:"user"`
	Host      string    `json:"host"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Timestamp: r.timestamp,
		EventID:   r.id,
		User:      r.user,
		Host:      r.host,
	})
}
