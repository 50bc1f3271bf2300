// Package handlers implements the control-plane HTTP routes the site
// backend uses to push content back into Discord.
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/neststoplabs/mbtbridge/internal/discord"
)

// DiscordControl is the slice of the gateway adapter the control plane
// drives.
type DiscordControl interface {
	SendMessage(channelID, content string, file *discord.File) error
	SendEmbed(channelID string, embed discord.Embed) error
	CreateTextChannel(name, categoryID string) (discord.CreatedChannel, error)
	DeleteChannel(channelID string) error
	CreateForumThread(forumChannelID, title, content string) (discord.CreatedThread, error)
}

// httpError maps adapter errors onto control-plane status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, discord.ErrChannelNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Channel not found")
	case errors.Is(err, discord.ErrCategoryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Category not found")
	case errors.Is(err, discord.ErrForumNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Forum channel not found")
	case errors.Is(err, discord.ErrGuildNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Guild not found")
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
