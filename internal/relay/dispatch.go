package relay

import (
	"context"
	"log/slog"

	"github.com/neststoplabs/mbtbridge/internal/backend"
	"github.com/neststoplabs/mbtbridge/internal/route"
)

// Dispatcher performs the single outbound write of a pipeline run. It never
// retries; failure policy belongs to the pipeline.
type Dispatcher struct {
	backend Backend
	logger  *slog.Logger
}

func NewDispatcher(log *slog.Logger, be Backend) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		backend: be,
		logger:  log.With(slog.String("component", "dispatcher")),
	}
}

// RelayThread posts the payload to the thread-message endpoint. Forum
// threads and flat channels share this path; they differ only in which
// identifier doubles as the forum ID.
func (d *Dispatcher) RelayThread(ctx context.Context, target route.Target, payload Payload) error {
	msg := backend.ThreadMessage{
		ThreadChannelID: target.ThreadID,
		ForumID:         target.ForumID,
		Author:          payload.AuthorDisplay,
		Content:         payload.Content,
	}
	return d.backend.PostThreadMessage(ctx, msg, filePart(payload, "image"))
}

// RelayTicket posts the payload to the authenticated per-ticket endpoint
// using a session token owned by this single attempt.
func (d *Dispatcher) RelayTicket(ctx context.Context, token backend.SessionToken, ticket backend.Ticket, payload Payload) error {
	return d.backend.PostTicketMessage(ctx, token, ticket.ID, payload.Content, payload.AuthorDisplay, filePart(payload, "file"))
}

func filePart(payload Payload, fieldName string) *backend.FilePart {
	if payload.Attachment == nil {
		return nil
	}
	return &backend.FilePart{
		FieldName: fieldName,
		Filename:  payload.Attachment.Filename,
		Data:      payload.Attachment.Data,
	}
}
