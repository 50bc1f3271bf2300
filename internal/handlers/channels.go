package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ChannelsHandler creates and deletes guild channels on behalf of the site.
type ChannelsHandler struct {
	logger  *slog.Logger
	control DiscordControl
}

func NewChannelsHandler(log *slog.Logger, control DiscordControl) *ChannelsHandler {
	return &ChannelsHandler{
		logger:  log.With(slog.String("handler", "channels")),
		control: control,
	}
}

func (h *ChannelsHandler) Register(e *echo.Echo) {
	e.POST("/create-channel", h.CreateChannel)
	e.POST("/delete-channel", h.DeleteChannel)
}

type createChannelResponse struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	ChannelType int    `json:"channel_type"`
}

func (h *ChannelsHandler) CreateChannel(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("channel_name"))
	categoryID := strings.TrimSpace(c.FormValue("category_id"))
	if name == "" || categoryID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "channel_name and category_id are required")
	}

	ch, err := h.control.CreateTextChannel(name, categoryID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, createChannelResponse{
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		ChannelType: ch.Type,
	})
}

func (h *ChannelsHandler) DeleteChannel(c echo.Context) error {
	channelID := strings.TrimSpace(c.FormValue("channel_id"))
	if channelID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "channel_id is required")
	}

	if err := h.control.DeleteChannel(channelID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"detail": fmt.Sprintf("Channel %s deleted successfully", channelID),
	})
}
