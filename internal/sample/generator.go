// Package sample produces synthetic Windows security logs for demos and tests.
package sample

import (
	"fmt"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"loggedin/internal/event"
)

var (
	computers   = []string{"DC01", "DC02", "WS01", "WS02", "SRV01", "SRV02", "LAPTOP01", "DESKTOP01"}
	normalUsers = []string{
		"user1@domain.com", "admin@domain.com", "service_acct@domain.com",
		"backup_admin@domain.com", "helpdesk@domain.com", "john.doe@domain.com",
	}
	suspiciousUsers = []string{
		"hacker@bad.com", "test@domain.com", "admin123@domain.com",
		"root@domain.com", "guest@domain.com", "scanner@attack.com",
	}
	logonTypes     = []string{"2", "3", "7", "10"}
	failureReasons = []string{"0xC000006D", "0xC000006A", "0xC0000234", "0xC0000072"}
)

// filler event mix: 60% success, 30% failure, 5% logout, 5% admin
var weights = []struct {
	id    event.ID
	share float64
}{
	{event.SuccessfulLogin, 0.60},
	{event.FailedLogin, 0.30},
	{event.Logout, 0.05},
	{event.AdminLogin, 0.05},
}

type entry struct {
	ts    time.Time
	id    event.ID
	host  string
	user  string
	extra string
}

// Generator builds reproducible log batches for a given seed
type Generator struct {
	faker *gofakeit.Faker
}

func New(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(uint64(seed))}
}

// Generate returns n key=value log lines covering the day starting at start,
// sorted by time. Every batch of at least 7 lines contains a brute-force
// burst, an off-hours admin login and a business-hours privileged logon.
func (g *Generator) Generate(n int, start time.Time) []string {
	entries := g.entries(n, start)
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = format(e)
	}
	return lines
}

// Records is Generate without the text round trip.
func (g *Generator) Records(n int, start time.Time) []event.Record {
	entries := g.entries(n, start)
	out := make([]event.Record, len(entries))
	for i, e := range entries {
		out[i] = event.MustNew(e.ts, e.id, e.user, e.host)
	}
	return out
}

func (g *Generator) entries(n int, start time.Time) []entry {
	if n <= 0 {
		return nil
	}
	start = start.UTC().Truncate(24 * time.Hour)

	var out []entry

	// Brute force: five failures two minutes apart, sometimes followed by a success
	attack := start.Add(time.Duration(g.faker.IntRange(1, 6)) * time.Hour)
	for i := 0; i < 5; i++ {
		out = append(out, g.build(attack.Add(time.Duration(i*2)*time.Minute), event.FailedLogin, "WS02", "hacker@bad.com"))
	}
	if g.faker.Float64() < 0.3 {
		out = append(out, g.build(attack.Add(12*time.Minute), event.SuccessfulLogin, "WS02", "hacker@bad.com"))
	}

	unusual := start.Add(time.Duration(g.faker.IntRange(2, 4))*time.Hour + time.Duration(g.faker.IntRange(0, 59))*time.Minute)
	out = append(out, g.build(unusual, event.SuccessfulLogin, "SRV01", "admin@domain.com"))

	admin := start.Add(time.Duration(g.faker.IntRange(9, 17)) * time.Hour)
	out = append(out, g.build(admin, event.AdminLogin, "DC01", "backup_admin@domain.com"))

	if len(out) > n {
		out = out[:n]
	}
	for len(out) < n {
		ts := start.Add(time.Duration(g.faker.IntRange(0, 23))*time.Hour + time.Duration(g.faker.IntRange(0, 59))*time.Minute)
		id := g.pickEvent()
		out = append(out, g.build(ts, id, g.faker.RandomString(computers), g.pickUser(id)))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ts.Before(out[j].ts) })
	return out
}

func (g *Generator) pickEvent() event.ID {
	r := g.faker.Float64()
	cumulative := 0.0
	for _, w := range weights {
		cumulative += w.share
		if r <= cumulative {
			return w.id
		}
	}
	return event.SuccessfulLogin
}

func (g *Generator) pickUser(id event.ID) string {
	if id == event.FailedLogin && g.faker.Float64() < 0.7 {
		return g.faker.RandomString(suspiciousUsers)
	}
	if g.faker.Float64() < 0.1 {
		return g.faker.Username() + "@domain.com"
	}
	return g.faker.RandomString(normalUsers)
}

func (g *Generator) build(ts time.Time, id event.ID, host, user string) entry {
	e := entry{ts: ts, id: id, host: host, user: user}
	switch id {
	case event.SuccessfulLogin:
		e.extra = fmt.Sprintf("LogonType=%s AuthPackage=Kerberos", g.faker.RandomString(logonTypes))
	case event.FailedLogin:
		e.extra = fmt.Sprintf("FailureReason=%s LogonType=3", g.faker.RandomString(failureReasons))
	case event.AdminLogin:
		e.extra = "PrivilegeList=SeBackupPrivilege,SeRestorePrivilege"
	}
	return e
}

func format(e entry) string {
	line := fmt.Sprintf("EventID=%d TimeCreated=%s Computer=%s User=%s", e.id, e.ts.Format("20060102T150405Z"), e.host, e.user)
	if e.extra != "" {
		line += " " + e.extra
	}
	return line
}
