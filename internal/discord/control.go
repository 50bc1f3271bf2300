package discord

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Control-plane errors the HTTP handlers map onto status codes.
var (
	ErrGuildNotFound    = errors.New("discord: guild not found")
	ErrChannelNotFound  = errors.New("discord: channel not found")
	ErrCategoryNotFound = errors.New("discord: category not found")
	ErrForumNotFound    = errors.New("discord: forum channel not found")
)

// noMentions disarms pings on API-originated sends; content produced
// outside Discord must never be able to page the server.
var noMentions = &discordgo.MessageAllowedMentions{}

// File is a binary payload attached to an outbound Discord message.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// EmbedField is one name/value pair of an outbound embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is the control-plane embed shape, converted to the SDK type at the
// send boundary.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	FooterText  string
	Timestamp   string
}

// SendMessage posts text, and optionally one image, to a channel.
func (a *Adapter) SendMessage(channelID, content string, file *File) error {
	if a.resolveChannel(a.session, channelID) == nil {
		return ErrChannelNotFound
	}
	send := &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: noMentions,
	}
	if file != nil {
		send.Files = []*discordgo.File{{
			Name:        file.Name,
			ContentType: file.ContentType,
			Reader:      bytes.NewReader(file.Data),
		}}
	}
	if _, err := a.session.ChannelMessageSendComplex(channelID, send); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendEmbed posts a rich embed to a channel.
func (a *Adapter) SendEmbed(channelID string, embed Embed) error {
	if a.resolveChannel(a.session, channelID) == nil {
		return ErrChannelNotFound
	}
	out := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	for _, f := range embed.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if embed.FooterText != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: embed.FooterText}
	}
	if embed.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, embed.Timestamp); err == nil {
			out.Timestamp = embed.Timestamp
		}
	}
	_, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{out},
		AllowedMentions: noMentions,
	})
	if err != nil {
		return fmt.Errorf("send embed: %w", err)
	}
	return nil
}

// CreatedChannel reports the channel materialized by a control call.
type CreatedChannel struct {
	ID   string
	Name string
	Type int
}

// CreateTextChannel creates a text channel under the given category.
func (a *Adapter) CreateTextChannel(name, categoryID string) (CreatedChannel, error) {
	category := a.resolveChannel(a.session, categoryID)
	if category == nil || category.Type != discordgo.ChannelTypeGuildCategory {
		return CreatedChannel{}, ErrCategoryNotFound
	}
	ch, err := a.session.GuildChannelCreateComplex(a.cfg.GuildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: categoryID,
	})
	if err != nil {
		return CreatedChannel{}, fmt.Errorf("create channel: %w", err)
	}
	a.logger.Info("channel created", slog.String("channel_id", ch.ID), slog.String("name", ch.Name))
	return CreatedChannel{ID: ch.ID, Name: ch.Name, Type: int(ch.Type)}, nil
}

// DeleteChannel removes a channel from the guild.
func (a *Adapter) DeleteChannel(channelID string) error {
	if a.resolveChannel(a.session, channelID) == nil {
		return ErrChannelNotFound
	}
	if _, err := a.session.ChannelDelete(channelID); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	a.logger.Info("channel deleted", slog.String("channel_id", channelID))
	return nil
}

// CreatedThread reports a forum thread materialized by a control call.
type CreatedThread struct {
	ID        string
	Name      string
	ForumName string
}

// CreateForumThread starts a thread, with the given first post, in a forum
// channel.
func (a *Adapter) CreateForumThread(forumChannelID, title, content string) (CreatedThread, error) {
	forum := a.resolveChannel(a.session, forumChannelID)
	if forum == nil || forum.Type != discordgo.ChannelTypeGuildForum {
		return CreatedThread{}, ErrForumNotFound
	}
	thread, err := a.session.ForumThreadStartComplex(forumChannelID, &discordgo.ThreadStart{
		Name: title,
	}, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: noMentions,
	})
	if err != nil {
		return CreatedThread{}, fmt.Errorf("create forum thread: %w", err)
	}
	a.logger.Info("forum thread created",
		slog.String("thread_id", thread.ID),
		slog.String("forum_id", forumChannelID),
	)
	return CreatedThread{ID: thread.ID, Name: thread.Name, ForumName: forum.Name}, nil
}
