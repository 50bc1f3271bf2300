// Package discord owns the gateway session: it normalizes inbound Discord
// messages into relay events, registers the guild slash commands, and
// exposes the outbound control operations the HTTP control plane uses.
package discord

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/neststoplabs/mbtbridge/internal/config"
	"github.com/neststoplabs/mbtbridge/internal/event"
	"github.com/neststoplabs/mbtbridge/internal/relay"
)

// Attachments larger than this are relayed as text only.
const maxAttachmentBytes = 25 << 20

// Processor runs the relay pipeline for one normalized event.
type Processor interface {
	Process(ctx context.Context, ev event.ChatEvent) relay.Outcome
}

// Adapter wraps a single discordgo session. The session handle is shared
// and reentrant-safe; no caller may assume exclusive use of it.
type Adapter struct {
	logger    *slog.Logger
	cfg       config.DiscordConfig
	session   *discordgo.Session
	processor Processor
	commands  *CommandSet

	// fetches attachment bytes off Discord's CDN
	fetchClient *http.Client

	removers []func()
	cancel   context.CancelFunc
}

func NewAdapter(log *slog.Logger, cfg config.DiscordConfig, processor Processor, commands *CommandSet) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates

	return &Adapter{
		logger:      log.With(slog.String("component", "discord")),
		cfg:         cfg,
		session:     session,
		processor:   processor,
		commands:    commands,
		fetchClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Session exposes the shared gateway session for the control operations.
func (a *Adapter) Session() *discordgo.Session {
	return a.session
}

// Start opens the gateway connection and registers all handlers. The
// context bounds every pipeline run spawned for an inbound event.
func (a *Adapter) Start(ctx context.Context) error {
	ctx = a.runContext(ctx)

	a.removers = append(a.removers,
		a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			a.logger.Info("gateway connected", slog.String("user", r.User.String()))
			if a.commands != nil {
				if err := a.commands.Sync(s, a.cfg.GuildID); err != nil {
					a.logger.Error("command sync failed", slog.Any("error", err))
				}
			}
		}),
		a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			a.handleMessage(ctx, s, m)
		}),
		a.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
			a.handleMemberJoin(s, m)
		}),
	)
	if a.commands != nil {
		a.removers = append(a.removers,
			a.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
				a.commands.Handle(ctx, s, i)
			}),
		)
	}

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord open connection: %w", err)
	}
	return nil
}

// runContext builds the long-lived context that bounds handler work. Start
// hooks run under a deadline, so the handler context must not inherit the
// caller's cancellation; only Stop ends it.
func (a *Adapter) runContext(ctx context.Context) context.Context {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	return runCtx
}

// Stop tears the gateway down. In-flight pipeline runs are cancelled via
// the run context.
func (a *Adapter) Stop() error {
	if a.cancel != nil {
		a.cancel()
	}
	for _, remove := range a.removers {
		remove()
	}
	a.removers = nil
	return a.session.Close()
}

// handleMessage normalizes one MessageCreate and hands it to the pipeline
// on its own goroutine. The receive path never blocks on backend I/O.
func (a *Adapter) handleMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if ctx.Err() != nil {
		return
	}
	if strings.TrimSpace(m.Content) == "" && len(m.Attachments) == 0 {
		return
	}

	ch := a.resolveChannel(s, m.ChannelID)
	ev := event.ChatEvent{
		ID:            m.ID,
		AuthorDisplay: m.Author.String(),
		ChannelID:     m.ChannelID,
		Text:          m.Content,
	}
	if ch != nil {
		ev.ChannelName = ch.Name
		ev.ChannelKind = channelKind(ch.Type)
		ev.ParentChannelID = ch.ParentID
	} else {
		ev.ChannelKind = event.KindOther
	}

	// Only the first attachment is relayed; fetching it here keeps all
	// platform I/O on the adapter side of the boundary.
	if len(m.Attachments) > 0 {
		if att := a.fetchAttachment(m.Attachments[0]); att != nil {
			ev.Attachments = append(ev.Attachments, *att)
		}
	}

	go func() {
		outcome := a.processor.Process(ctx, ev)
		if outcome.State == relay.StateFailed {
			a.logger.Warn("relay pipeline failed",
				slog.String("event_id", ev.ID),
				slog.String("stage", string(outcome.Stage)),
			)
		}
	}()
}

// resolveChannel prefers the state cache and falls back to the REST API.
func (a *Adapter) resolveChannel(s *discordgo.Session, channelID string) *discordgo.Channel {
	if ch, err := s.State.Channel(channelID); err == nil && ch != nil {
		return ch
	}
	ch, err := s.Channel(channelID)
	if err != nil {
		a.logger.Warn("channel resolution failed",
			slog.String("channel_id", channelID),
			slog.Any("error", err),
		)
		return nil
	}
	return ch
}

func (a *Adapter) fetchAttachment(att *discordgo.MessageAttachment) *event.Attachment {
	if att == nil || att.URL == "" {
		return nil
	}
	if att.Size > maxAttachmentBytes {
		a.logger.Warn("attachment too large, relaying text only",
			slog.String("filename", att.Filename),
			slog.Int("size", att.Size),
		)
		return nil
	}
	resp, err := a.fetchClient.Get(att.URL)
	if err != nil {
		a.logger.Warn("attachment fetch failed", slog.String("filename", att.Filename), slog.Any("error", err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("attachment fetch failed", slog.String("filename", att.Filename), slog.Int("status", resp.StatusCode))
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes))
	if err != nil {
		a.logger.Warn("attachment read failed", slog.String("filename", att.Filename), slog.Any("error", err))
		return nil
	}
	return &event.Attachment{
		Filename:    att.Filename,
		ContentType: att.ContentType,
		Data:        data,
	}
}

func channelKind(t discordgo.ChannelType) event.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return event.KindThread
	case discordgo.ChannelTypeGuildText:
		return event.KindFlatChannel
	default:
		return event.KindOther
	}
}
