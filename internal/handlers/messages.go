package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/neststoplabs/mbtbridge/internal/discord"
)

// Inbound images above this are rejected rather than buffered.
const maxUploadBytes = 25 << 20

// MessagesHandler relays site-originated messages into Discord channels.
type MessagesHandler struct {
	logger  *slog.Logger
	control DiscordControl
}

func NewMessagesHandler(log *slog.Logger, control DiscordControl) *MessagesHandler {
	return &MessagesHandler{
		logger:  log.With(slog.String("handler", "messages")),
		control: control,
	}
}

func (h *MessagesHandler) Register(e *echo.Echo) {
	e.POST("/send-message", h.SendMessage)
	e.POST("/send-message-clean", h.SendMessageClean)
}

// SendMessage posts "**send_by:** message" with an optional image.
func (h *MessagesHandler) SendMessage(c echo.Context) error {
	channelID := strings.TrimSpace(c.FormValue("channel_id"))
	sendBy := strings.TrimSpace(c.FormValue("send_by"))
	message := c.FormValue("message")
	if channelID == "" || sendBy == "" || message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "channel_id, send_by and message are required")
	}
	content := fmt.Sprintf("**%s:** %s", sendBy, message)
	return h.send(c, channelID, content)
}

// SendMessageClean posts the message verbatim, without the author prefix.
func (h *MessagesHandler) SendMessageClean(c echo.Context) error {
	channelID := strings.TrimSpace(c.FormValue("channel_id"))
	message := c.FormValue("message")
	if channelID == "" || message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "channel_id and message are required")
	}
	return h.send(c, channelID, message)
}

func (h *MessagesHandler) send(c echo.Context, channelID, content string) error {
	file, err := h.imageFile(c)
	if err != nil {
		return err
	}
	if err := h.control.SendMessage(channelID, content, file); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}

// imageFile reads the optional "image" form part into memory.
func (h *MessagesHandler) imageFile(c echo.Context) (*discord.File, error) {
	header, err := c.FormFile("image")
	if err != nil {
		// The part is optional; only a present-but-broken part is an error.
		return nil, nil
	}
	if header.Size > maxUploadBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image too large")
	}
	src, err := header.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable image upload")
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable image upload")
	}
	return &discord.File{
		Name:        header.Filename,
		ContentType: contentType(header),
		Data:        data,
	}, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
