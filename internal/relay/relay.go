// Package relay implements the message-classification and thread-lifecycle
// synchronization core: for each inbound chat event it classifies a routing
// target, guarantees a backend thread record exists before relaying into
// it, and posts the content to the right backend endpoint.
package relay

import (
	"context"

	"github.com/neststoplabs/mbtbridge/internal/backend"
	"github.com/neststoplabs/mbtbridge/internal/event"
)

// Backend is the slice of the MyBusTimes client the relay core consumes.
type Backend interface {
	ThreadExists(ctx context.Context, threadID string) (bool, error)
	CreateThread(ctx context.Context, threadID, forumID string, meta backend.ThreadMeta) error
	PostThreadMessage(ctx context.Context, msg backend.ThreadMessage, file *backend.FilePart) error
	LookupTicket(ctx context.Context, channelID string) (backend.Ticket, error)
	Authenticate(ctx context.Context) (backend.SessionToken, error)
	PostTicketMessage(ctx context.Context, token backend.SessionToken, ticketID int64, content, sender string, file *backend.FilePart) error
}

// Stage names the pipeline step at which a run terminated.
type Stage string

const (
	StageClassify     Stage = "classify"
	StageEnsure       Stage = "ensure"
	StageResolve      Stage = "resolve"
	StageAuthenticate Stage = "authenticate"
	StageRelay        Stage = "relay"
)

// State is a terminal pipeline state.
type State string

const (
	StateRelayed State = "relayed"
	StateIgnored State = "ignored"
	StateFailed  State = "failed"
)

// Outcome reports how one pipeline run ended. Err is set only for
// StateFailed.
type Outcome struct {
	State State
	Stage Stage
	Err   error
}

// Payload is the relay content constructed immediately before dispatch and
// discarded after the backend call returns. At most one attachment ever
// survives into it.
type Payload struct {
	AuthorDisplay string
	Content       string
	Attachment    *event.Attachment
}
