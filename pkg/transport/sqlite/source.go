// Package sqlite stores the admin log in a SQLite database and serves it as
// a transport.Source. It backs the websocket server and the seed command.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/transport"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type Source struct {
	db *sql.DB
}

var _ transport.Source = &Source{}

// DSNForFile returns the DSN used for an on-disk database.
func DSNForFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("sqlite source: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

func Open(dsn string) (*Source, error) {
	if dsn == "" {
		return nil, errors.New("sqlite source: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite source: open")
	}
	s := &Source{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Source) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Source) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS admin_log (
		  id INTEGER PRIMARY KEY AUTOINCREMENT,
		  date_ms INTEGER NOT NULL,
		  kind TEXT NOT NULL,
		  actor_id INTEGER NOT NULL DEFAULT 0,
		  actor TEXT NOT NULL DEFAULT '',
		  body TEXT NOT NULL DEFAULT '',
		  ref_id INTEGER NOT NULL DEFAULT 0,
		  score INTEGER NOT NULL DEFAULT 0,
		  amount TEXT NOT NULL DEFAULT '',
		  inviter TEXT NOT NULL DEFAULT '',
		  title TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS admin_log_by_kind ON admin_log(kind, id);`,
		`CREATE INDEX IF NOT EXISTS admin_log_by_actor ON admin_log(actor_id, id);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite source: migrate")
		}
	}
	return nil
}

// Append inserts records and returns the ids assigned to them. Record ids are
// ignored.
func (s *Source) Append(ctx context.Context, records ...eventlog.Record) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite source: begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO admin_log (date_ms, kind, actor_id, actor, body, ref_id, score, amount, inviter, title)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite source: prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	ids := make([]int64, 0, len(records))
	for _, r := range records {
		if r.Kind == "" {
			r.Kind = eventlog.KindText
		}
		if r.Date.IsZero() {
			r.Date = time.Now()
		}
		res, err := stmt.ExecContext(ctx, r.Date.UnixMilli(), string(r.Kind), r.ActorID, r.Actor,
			r.Body, r.RefID, r.Score, r.Amount, r.Inviter, r.Title)
		if err != nil {
			return nil, errors.Wrap(err, "sqlite source: insert")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, errors.Wrap(err, "sqlite source: last insert id")
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "sqlite source: commit")
	}
	return ids, nil
}

func (s *Source) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_log WHERE id = ?`, id)
	if err != nil {
		return false, errors.Wrap(err, "sqlite source: delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "sqlite source: rows affected")
	}
	return n > 0, nil
}

func (s *Source) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_log`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "sqlite source: count")
	}
	return n, nil
}

const columns = `id, date_ms, kind, actor_id, actor, body, ref_id, score, amount, inviter, title`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (eventlog.Record, error) {
	var (
		r      eventlog.Record
		dateMs int64
		kind   string
	)
	err := row.Scan(&r.ID, &dateMs, &kind, &r.ActorID, &r.Actor, &r.Body, &r.RefID, &r.Score, &r.Amount, &r.Inviter, &r.Title)
	if err != nil {
		return eventlog.Record{}, err
	}
	r.Date = time.UnixMilli(dateMs)
	r.Kind = eventlog.Kind(kind)
	return r, nil
}

// FetchItems narrows by kind, actor and edge in SQL and applies the text
// query in Go, since it matches the described text. Without a text query the
// page is bounded in SQL.
func (s *Source) FetchItems(ctx context.Context, req transport.ItemsRequest) (transport.ItemsPage, error) {
	if req.Limit <= 0 {
		return transport.ItemsPage{}, errors.New("sqlite source: limit must be positive")
	}

	q, args := itemsQuery(req)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return transport.ItemsPage{}, errors.Wrap(err, "sqlite source: query items")
	}
	defer func() { _ = rows.Close() }()

	var page []*eventlog.Item
	end := true
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return transport.ItemsPage{}, errors.Wrap(err, "sqlite source: scan item")
		}
		it, err := r.Item()
		if err != nil {
			return transport.ItemsPage{}, errors.Wrapf(err, "sqlite source: row %d", r.ID)
		}
		if !req.Filter.Match(it) {
			continue
		}
		if len(page) == req.Limit {
			end = false
			break
		}
		page = append(page, it)
	}
	if err := rows.Err(); err != nil {
		return transport.ItemsPage{}, errors.Wrap(err, "sqlite source: iterate items")
	}
	if req.Direction == eventlog.Up {
		for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
			page[i], page[j] = page[j], page[i]
		}
	}
	return transport.ItemsPage{Items: page, EndOfStream: end}, nil
}

func (s *Source) FetchDependency(ctx context.Context, id int64) (*eventlog.Item, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM admin_log WHERE id = ?", id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transport.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "sqlite source: query dependency")
	}
	it, err := r.Item()
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite source: row %d", r.ID)
	}
	return it, nil
}

func itemsQuery(req transport.ItemsRequest) (string, []any) {
	var (
		where []string
		args  []any
	)
	order := "ASC"
	if req.Direction == eventlog.Up {
		order = "DESC"
		if req.EdgeID != 0 {
			where = append(where, "id < ?")
			args = append(args, req.EdgeID)
		}
	} else {
		where = append(where, "id > ?")
		args = append(args, req.EdgeID)
	}
	if len(req.Filter.Kinds) > 0 {
		where = append(where, "kind IN ("+placeholders(len(req.Filter.Kinds))+")")
		for _, k := range req.Filter.Kinds {
			args = append(args, string(k))
		}
	}
	if len(req.Filter.Actors) > 0 {
		where = append(where, "actor_id IN ("+placeholders(len(req.Filter.Actors))+")")
		for _, a := range req.Filter.Actors {
			args = append(args, a)
		}
	}
	q := "SELECT " + columns + " FROM admin_log"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id " + order
	if strings.TrimSpace(req.Filter.Query) == "" {
		// One extra row tells whether the page reaches the end.
		q += " LIMIT ?"
		args = append(args, req.Limit+1)
	}
	return q, args

}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
