// Package transport defines how the widget talks to a remote admin-log
// source and runs those requests as bubbletea commands.
//
// Implementations live in subpackages: memory (tests and demos), sqlite
// (the server-side store) and ws (a websocket client and server).
package transport

import (
	"context"
	"fmt"

	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by FetchDependency when the referenced item no
// longer exists at the source.
var ErrNotFound = errors.New("transport: item not found")

// ItemsRequest asks for up to Limit items beyond EdgeID in Direction.
// EdgeID 0 with Up requests the newest page.
type ItemsRequest struct {
	Direction eventlog.Direction `json:"direction"`
	EdgeID    int64              `json:"edge_id"`
	Filter    eventlog.Filter    `json:"filter"`
	Limit     int                `json:"limit"`
}

// ItemsPage is a batch in ascending id order. EndOfStream reports that no
// more items exist beyond it.
type ItemsPage struct {
	Items       []*eventlog.Item
	EndOfStream bool
}

type Source interface {
	FetchItems(ctx context.Context, req ItemsRequest) (ItemsPage, error)
	FetchDependency(ctx context.Context, id int64) (*eventlog.Item, error)
}

// TransientError is a transport level failure. The request may succeed if
// issued again.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Cause() error { return e.Err }

// Transient classifies err. Not found and cancellation pass through, any
// other failure becomes a *TransientError.
func Transient(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || IsCanceled(err) {
		return err
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
