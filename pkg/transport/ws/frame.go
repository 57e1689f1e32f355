// Package ws carries the admin-log transport over a websocket. Every request
// frame has an id; responses echo it and a cancel frame aborts the request
// with that id on the server.
package ws

import (
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/transport"
)

const (
	FrameItems      = "items"
	FrameDependency = "dependency"
	FrameCancel     = "cancel"
	FramePage       = "page"
	FrameItem       = "item"
	FrameError      = "error"
)

type Frame struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Request      *transport.ItemsRequest `json:"request,omitempty"`
	DependencyID int64                   `json:"dependency_id,omitempty"`

	Records     []eventlog.Record `json:"records,omitempty"`
	Record      *eventlog.Record  `json:"record,omitempty"`
	EndOfStream bool              `json:"end_of_stream,omitempty"`

	Error    string `json:"error,omitempty"`
	NotFound bool   `json:"not_found,omitempty"`
}
