package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ThreadsHandler creates forum threads on Discord on behalf of the site.
type ThreadsHandler struct {
	logger         *slog.Logger
	control        DiscordControl
	forumChannelID string
}

func NewThreadsHandler(log *slog.Logger, control DiscordControl, forumChannelID string) *ThreadsHandler {
	return &ThreadsHandler{
		logger:         log.With(slog.String("handler", "threads")),
		control:        control,
		forumChannelID: forumChannelID,
	}
}

func (h *ThreadsHandler) Register(e *echo.Echo) {
	e.POST("/create-thread", h.CreateThread)
}

type createThreadRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createThreadResponse struct {
	ThreadID   string `json:"thread_id"`
	ThreadName string `json:"thread_name"`
	ForumName  string `json:"forum_name"`
}

func (h *ThreadsHandler) CreateThread(c echo.Context) error {
	var req createThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	content := req.Content
	if content == "" {
		content = "Discussion started via API"
	}

	thread, err := h.control.CreateForumThread(h.forumChannelID, req.Title, content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, createThreadResponse{
		ThreadID:   thread.ID,
		ThreadName: thread.Name,
		ForumName:  thread.ForumName,
	})
}
