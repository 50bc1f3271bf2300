package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/neststoplabs/mbtbridge/internal/discord"
)

const defaultEmbedColor = 0x00BFFF

// EmbedsHandler posts rich embeds into Discord channels on behalf of the
// site.
type EmbedsHandler struct {
	logger  *slog.Logger
	control DiscordControl
}

func NewEmbedsHandler(log *slog.Logger, control DiscordControl) *EmbedsHandler {
	return &EmbedsHandler{
		logger:  log.With(slog.String("handler", "embeds")),
		control: control,
	}
}

func (h *EmbedsHandler) Register(e *echo.Echo) {
	e.POST("/send-embed", h.SendEmbed)
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedBody struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       *int         `json:"color"`
	Fields      []embedField `json:"fields"`
	Footer      *embedFooter `json:"footer"`
	Timestamp   string       `json:"timestamp"`
}

type sendEmbedRequest struct {
	ChannelID string     `json:"channel_id"`
	Embed     *embedBody `json:"embed"`
}

func (h *EmbedsHandler) SendEmbed(c echo.Context) error {
	var req sendEmbedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ChannelID == "" || req.Embed == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing 'channel_id' or 'embed' in JSON body")
	}

	embed := discord.Embed{
		Title:       req.Embed.Title,
		Description: req.Embed.Description,
		Color:       defaultEmbedColor,
		Timestamp:   req.Embed.Timestamp,
	}
	if req.Embed.Color != nil {
		embed.Color = *req.Embed.Color
	}
	for _, f := range req.Embed.Fields {
		name := f.Name
		if name == "" {
			name = "Unnamed Field"
		}
		value := f.Value
		if value == "" {
			value = "—"
		}
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:   name,
			Value:  value,
			Inline: f.Inline,
		})
	}
	if req.Embed.Footer != nil {
		embed.FooterText = req.Embed.Footer.Text
	}

	if err := h.control.SendEmbed(req.ChannelID, embed); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "embed sent"})
}
