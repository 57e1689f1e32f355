// Package demo generates a plausible admin log for the memory source and the
// seed command.
package demo

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
)

var (
	admins  = []string{"Ann", "Bob", "Chen", "Dana", "Emeka"}
	members = []string{"Farid", "Gwen", "Hiro", "Ines", "Jonas", "Kemal", "Lena"}
	bodies  = []string{
		"deleted a message",
		"restricted a member for flooding",
		"changed the slow mode to 30 seconds",
		"edited the group description",
		"enabled the sign messages option",
		"banned a spam account",
		"promoted a new moderator and granted the right to pin messages",
		"updated the invite link",
	}
	titles = []string{"Gophers", "Gophers (EU)", "Gophers Announcements", "Gophers Off-Topic"}
)

// Config controls Generate.
type Config struct {
	Count int
	Seed  uint64
	Start time.Time
	// Step is the average distance between two events.
	Step time.Duration
	// MissingRefs makes that share of references point past the log.
	MissingRefs float64
}

func (c Config) withDefaults() Config {
	if c.Count <= 0 {
		c.Count = 500
	}
	if c.Start.IsZero() {
		c.Start = time.Now().Add(-time.Duration(c.Count) * 17 * time.Minute)
	}
	if c.Step <= 0 {
		c.Step = 17 * time.Minute
	}
	return c
}

// Generate returns records with ids 1..Count in ascending order. Pinned, game
// score and payment records reference earlier records.
func Generate(cfg Config) []eventlog.Record {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	date := cfg.Start
	ret := make([]eventlog.Record, 0, cfg.Count)

	ref := func(id int64) int64 {
		if rng.Float64() < cfg.MissingRefs {
			return int64(cfg.Count) + 1 + rng.Int64N(1000)
		}
		return 1 + rng.Int64N(id-1)
	}

	for i := 0; i < cfg.Count; i++ {
		id := int64(i + 1)
		date = date.Add(time.Duration(rng.Int64N(int64(2*cfg.Step))) + time.Second)
		actor := rng.IntN(len(admins))
		r := eventlog.Record{
			ID:      id,
			Date:    date,
			ActorID: int64(actor + 1),
			Actor:   admins[actor],
		}
		n := rng.IntN(20)
		switch {
		case id > 1 && n == 0:
			r.Kind = eventlog.KindPinned
			r.RefID = ref(id)
		case id > 1 && n == 1:
			r.Kind = eventlog.KindGameScore
			r.RefID = ref(id)
			r.Score = rng.IntN(5000)
		case id > 1 && n == 2:
			r.Kind = eventlog.KindPayment
			r.RefID = ref(id)
			r.Amount = fmt.Sprintf("%d.%02d EUR", 1+rng.IntN(99), rng.IntN(100))
		case n == 3 || n == 4:
			m := rng.IntN(len(members))
			r.Kind = eventlog.KindJoined
			r.ActorID = int64(100 + m)
			r.Actor = members[m]
			if n == 4 {
				r.Inviter = admins[rng.IntN(len(admins))]
			}
		case n == 5:
			m := rng.IntN(len(members))
			r.Kind = eventlog.KindLeft
			r.ActorID = int64(100 + m)
			r.Actor = members[m]
		case n == 6:
			r.Kind = eventlog.KindTitleChanged
			r.Title = titles[rng.IntN(len(titles))]
		default:
			r.Kind = eventlog.KindText
			r.Body = bodies[rng.IntN(len(bodies))]
		}
		ret = append(ret, r)
	}
	return ret
}
