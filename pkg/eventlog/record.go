package eventlog

import (
	"time"

	"github.com/pkg/errors"
)

// Record is the flat form of an Item used on the wire and in SQL rows.
type Record struct {
	ID      int64     `json:"id"`
	Date    time.Time `json:"date"`
	Kind    Kind      `json:"kind"`
	ActorID int64     `json:"actor_id"`
	Actor   string    `json:"actor"`
	Body    string    `json:"body,omitempty"`
	RefID   int64     `json:"ref_id,omitempty"`
	Score   int       `json:"score,omitempty"`
	Amount  string    `json:"amount,omitempty"`
	Inviter string    `json:"inviter,omitempty"`
	Title   string    `json:"title,omitempty"`
}

// RecordOf flattens an item. Dependency runtime state is not carried.
func RecordOf(it *Item) Record {
	r := Record{
		ID:      it.ID,
		Date:    it.Date,
		Kind:    it.Kind(),
		ActorID: it.ActorID,
		Actor:   it.Actor,
	}
	switch p := it.Payload.(type) {
	case *Text:
		r.Body = p.Body
	case *Pinned:
		r.RefID = p.RefID
	case *GameScore:
		r.RefID = p.RefID
		r.Score = p.Score
	case *Payment:
		r.RefID = p.RefID
		r.Amount = p.Amount
	case *Joined:
		r.Inviter = p.Inviter
	case *TitleChanged:
		r.Title = p.Title
	}
	return r
}

// Item rebuilds the item described by the record.
func (r Record) Item() (*Item, error) {
	it := &Item{ID: r.ID, Date: r.Date, ActorID: r.ActorID, Actor: r.Actor}
	switch r.Kind {
	case KindText, "":
		it.Payload = &Text{Body: r.Body}
	case KindPinned:
		it.Payload = &Pinned{Dependency: Dependency{RefID: r.RefID}}
	case KindGameScore:
		it.Payload = &GameScore{Dependency: Dependency{RefID: r.RefID}, Score: r.Score}
	case KindPayment:
		it.Payload = &Payment{Dependency: Dependency{RefID: r.RefID}, Amount: r.Amount}
	case KindJoined:
		it.Payload = &Joined{Inviter: r.Inviter}
	case KindTitleChanged:
		it.Payload = &TitleChanged{Title: r.Title}
	case KindLeft:
		it.Payload = &Left{}
	default:
		return nil, errors.Errorf("unknown item kind %q", r.Kind)
	}
	return it, nil
}

// Items rebuilds a batch of records.
func Items(records []Record) ([]*Item, error) {
	ret := make([]*Item, 0, len(records))
	for _, r := range records {
		it, err := r.Item()
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", r.ID)
		}
		ret = append(ret, it)
	}
	return ret, nil
}

// Records flattens a batch of items.
func Records(items []*Item) []Record {
	ret := make([]Record, 0, len(items))
	for _, it := range items {
		ret = append(ret, RecordOf(it))
	}
	return ret
}
