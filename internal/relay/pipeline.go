package relay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/neststoplabs/mbtbridge/internal/backend"
	"github.com/neststoplabs/mbtbridge/internal/event"
	"github.com/neststoplabs/mbtbridge/internal/route"
)

// Pipeline runs the per-event state machine: classify, synchronize or
// resolve, dispatch. Every run is independent; the only shared state is
// the read-only allow list inside the classifier and the reentrant-safe
// backend client.
type Pipeline struct {
	classifier *route.Classifier
	sync       *Synchronizer
	dispatcher *Dispatcher
	backend    Backend
	logger     *slog.Logger
}

func NewPipeline(log *slog.Logger, classifier *route.Classifier, sync *Synchronizer, dispatcher *Dispatcher, be Backend) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		classifier: classifier,
		sync:       sync,
		dispatcher: dispatcher,
		backend:    be,
		logger:     log.With(slog.String("component", "pipeline")),
	}
}

// Process takes one inbound event to a terminal state. Errors are terminal
// for this event only; they are logged here and never propagate to the
// caller's receive loop.
func (p *Pipeline) Process(ctx context.Context, ev event.ChatEvent) Outcome {
	log := p.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.String("event_id", ev.ID),
		slog.String("channel_id", ev.ChannelID),
	)

	target := p.classifier.Classify(ev)
	switch target.Decision {
	case route.DecisionForumThread, route.DecisionFlatChannel:
		return p.relayThread(ctx, log, ev, target)
	case route.DecisionTicketCandidate:
		return p.relayTicket(ctx, log, ev, target)
	default:
		log.Debug("event ignored", slog.String("kind", string(ev.ChannelKind)))
		return Outcome{State: StateIgnored, Stage: StageClassify}
	}
}

func (p *Pipeline) relayThread(ctx context.Context, log *slog.Logger, ev event.ChatEvent, target route.Target) Outcome {
	payload := buildPayload(ev)

	meta := backend.ThreadMeta{
		Title:     ev.ChannelName,
		CreatedBy: ev.AuthorDisplay,
		FirstPost: ev.Text,
	}
	// Ensure is sequenced strictly before the relay write. A failed create
	// is reported but the relay still goes out; the content may land in a
	// thread the backend never recorded, which is accepted over dropping
	// the message.
	if err := p.sync.Ensure(ctx, target, meta); err != nil {
		log.Error("thread ensure failed, relaying anyway",
			slog.String("forum_id", target.ForumID),
			slog.Any("error", err),
		)
	}

	if err := p.dispatcher.RelayThread(ctx, target, payload); err != nil {
		log.Error("thread relay failed", slog.Any("error", err))
		return Outcome{State: StateFailed, Stage: StageRelay, Err: err}
	}
	log.Info("relayed to thread",
		slog.String("thread_id", target.ThreadID),
		slog.String("forum_id", target.ForumID),
		slog.Bool("attachment", payload.Attachment != nil),
	)
	return Outcome{State: StateRelayed, Stage: StageRelay}
}

func (p *Pipeline) relayTicket(ctx context.Context, log *slog.Logger, ev event.ChatEvent, target route.Target) Outcome {
	ticket, err := p.backend.LookupTicket(ctx, target.ChannelID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			// No ticket bound to this channel: nothing to relay.
			log.Debug("no ticket for channel")
			return Outcome{State: StateIgnored, Stage: StageResolve}
		}
		log.Error("ticket lookup failed", slog.Any("error", err))
		return Outcome{State: StateFailed, Stage: StageResolve, Err: err}
	}

	// One authentication per relay attempt. Token lifetime is unknown and
	// short, so a fresh session beats a stale cached one at this event rate.
	token, err := p.backend.Authenticate(ctx)
	if err != nil {
		log.Error("session authentication failed",
			slog.Int64("ticket_id", ticket.ID),
			slog.Any("error", err),
		)
		return Outcome{State: StateFailed, Stage: StageAuthenticate, Err: err}
	}

	payload := buildPayload(ev)
	if err := p.dispatcher.RelayTicket(ctx, token, ticket, payload); err != nil {
		log.Error("ticket relay failed",
			slog.Int64("ticket_id", ticket.ID),
			slog.Any("error", err),
		)
		return Outcome{State: StateFailed, Stage: StageRelay, Err: err}
	}
	log.Info("relayed to ticket",
		slog.Int64("ticket_id", ticket.ID),
		slog.Bool("attachment", payload.Attachment != nil),
	)
	return Outcome{State: StateRelayed, Stage: StageRelay}
}

func buildPayload(ev event.ChatEvent) Payload {
	return Payload{
		AuthorDisplay: ev.AuthorDisplay,
		Content:       ev.Text,
		Attachment:    event.FirstAttachment(ev),
	}
}
