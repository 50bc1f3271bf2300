// Package route classifies inbound chat events into relay targets.
package route

import (
	"github.com/neststoplabs/mbtbridge/internal/event"
)

// Decision tags the routing outcome for one event.
type Decision string

const (
	DecisionForumThread     Decision = "forum_thread"
	DecisionFlatChannel     Decision = "flat_channel"
	DecisionTicketCandidate Decision = "ticket_candidate"
	DecisionIgnore          Decision = "ignore"
)

// Target is the classified relay destination. For forum threads the thread
// and forum IDs differ; for flat channels the channel ID serves as both.
type Target struct {
	Decision  Decision
	ThreadID  string
	ForumID   string
	ChannelID string
}

// AllowList is the static set of forum and flat-channel identifiers
// eligible for thread-style relay. Read-only after construction and safe to
// share across concurrent pipeline runs.
type AllowList struct {
	ids map[string]struct{}
}

// NewAllowList builds an allow list from the configured identifiers.
func NewAllowList(ids []string) *AllowList {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return &AllowList{ids: set}
}

// Contains reports whether id is allow-listed.
func (a *AllowList) Contains(id string) bool {
	if a == nil {
		return false
	}
	_, ok := a.ids[id]
	return ok
}

// Len returns the number of allow-listed identifiers.
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.ids)
}

// Classifier maps an event's channel identity to a relay target. It is a
// pure, total function: every event yields exactly one decision and no
// network or state is touched.
type Classifier struct {
	allow *AllowList
}

func NewClassifier(allow *AllowList) *Classifier {
	return &Classifier{allow: allow}
}

// Classify applies the routing rules in order, first match winning:
// allow-listed thread parents relay as forum threads, allow-listed flat
// channels relay as flat channels, other flat channels become ticket
// candidates (a backend lookup decides whether a ticket exists), and
// everything else is ignored.
func (c *Classifier) Classify(ev event.ChatEvent) Target {
	switch ev.ChannelKind {
	case event.KindThread:
		if c.allow.Contains(ev.ParentChannelID) {
			return Target{
				Decision: DecisionForumThread,
				ThreadID: ev.ChannelID,
				ForumID:  ev.ParentChannelID,
			}
		}
		return Target{Decision: DecisionIgnore}
	case event.KindFlatChannel:
		if c.allow.Contains(ev.ChannelID) {
			return Target{
				Decision:  DecisionFlatChannel,
				ThreadID:  ev.ChannelID,
				ForumID:   ev.ChannelID,
				ChannelID: ev.ChannelID,
			}
		}
		return Target{
			Decision:  DecisionTicketCandidate,
			ChannelID: ev.ChannelID,
		}
	default:
		return Target{Decision: DecisionIgnore}
	}
}
