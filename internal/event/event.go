// Package event defines the normalized inbound chat event handed from the
// gateway adapter to the relay pipeline. Platform SDK types never cross
// this boundary.
package event

// ChannelKind is a closed classification of the channel an event arrived in.
type ChannelKind string

const (
	KindThread      ChannelKind = "thread"
	KindFlatChannel ChannelKind = "flat_channel"
	KindOther       ChannelKind = "other"
)

// Attachment is a single binary payload carried by an event. The bytes are
// already fetched by the adapter; nothing downstream performs I/O to read it.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ChatEvent is one inbound message, immutable for the duration of a
// pipeline run and discarded afterwards.
type ChatEvent struct {
	ID              string
	AuthorDisplay   string
	ChannelID       string
	ChannelName     string
	ChannelKind     ChannelKind
	ParentChannelID string
	Text            string
	Attachments     []Attachment
}

// FirstAttachment returns the event's first attachment, or nil. At most one
// attachment is ever relayed; the rest are deliberately dropped.
func FirstAttachment(ev ChatEvent) *Attachment {
	if len(ev.Attachments) == 0 {
		return nil
	}
	a := ev.Attachments[0]
	return &a
}
