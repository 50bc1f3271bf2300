package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neststoplabs/mbtbridge/internal/discord"
)

// fakeControl records the last call made through the DiscordControl slice.
type fakeControl struct {
	sendChannelID string
	sendContent   string
	sendFile      *discord.File
	sendErr       error

	embedChannelID string
	embed          discord.Embed
	embedErr       error

	createdName     string
	createdCategory string
	createErr       error

	deletedChannel string
	deleteErr      error

	threadForum   string
	threadTitle   string
	threadContent string
	threadErr     error
}

func (f *fakeControl) SendMessage(channelID, content string, file *discord.File) error {
	f.sendChannelID = channelID
	f.sendContent = content
	f.sendFile = file
	return f.sendErr
}

func (f *fakeControl) SendEmbed(channelID string, embed discord.Embed) error {
	f.embedChannelID = channelID
	f.embed = embed
	return f.embedErr
}

func (f *fakeControl) CreateTextChannel(name, categoryID string) (discord.CreatedChannel, error) {
	f.createdName = name
	f.createdCategory = categoryID
	if f.createErr != nil {
		return discord.CreatedChannel{}, f.createErr
	}
	return discord.CreatedChannel{ID: "chan-1", Name: name, Type: 0}, nil
}

func (f *fakeControl) DeleteChannel(channelID string) error {
	f.deletedChannel = channelID
	return f.deleteErr
}

func (f *fakeControl) CreateForumThread(forumChannelID, title, content string) (discord.CreatedThread, error) {
	f.threadForum = forumChannelID
	f.threadTitle = title
	f.threadContent = content
	if f.threadErr != nil {
		return discord.CreatedThread{}, f.threadErr
	}
	return discord.CreatedThread{ID: "thread-1", Name: title, ForumName: "support"}, nil
}

func newEcho(handlers ...interface{ Register(*echo.Echo) }) *echo.Echo {
	e := echo.New()
	for _, h := range handlers {
		h.Register(e)
	}
	return e
}

func postForm(e *echo.Echo, path string, form map[string]string) *httptest.ResponseRecorder {
	values := make([]string, 0, len(form))
	for k, v := range form {
		values = append(values, k+"="+v)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(strings.Join(values, "&")))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postJSON(e *echo.Echo, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	e := newEcho(NewPingHandler(slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	e := newEcho(NewPingHandler(slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"mbtbridge"}`, rec.Body.String())

	head := httptest.NewRequest(http.MethodHead, "/health", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, head)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSendMessagePrefixesAuthor(t *testing.T) {
	control := &fakeControl{}
	e := newEcho(NewMessagesHandler(slog.Default(), control))

	rec := postForm(e, "/send-message", map[string]string{
		"channel_id": "chan-1",
		"send_by":    "dispatch",
		"message":    "service resumed",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "chan-1", control.sendChannelID)
	assert.Equal(t, "**dispatch:** service resumed", control.sendContent)
	assert.Nil(t, control.sendFile)
}

func TestSendMessageCleanIsVerbatim(t *testing.T) {
	control := &fakeControl{}
	e := newEcho(NewMessagesHandler(slog.Default(), control))

	rec := postForm(e, "/send-message-clean", map[string]string{
		"channel_id": "chan-1",
		"message":    "service resumed",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "service resumed", control.sendContent)
}

func TestSendMessageValidation(t *testing.T) {
	control := &fakeControl{}
	e := newEcho(NewMessagesHandler(slog.Default(), control))

	rec := postForm(e, "/send-message", map[string]string{"channel_id": "chan-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageWithImage(t *testing.T) {
	control := &fakeControl{}
	e := newEcho(NewMessagesHandler(slog.Default(), control))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("channel_id", "chan-1"))
	require.NoError(t, writer.WriteField("send_by", "dispatch"))
	require.NoError(t, writer.WriteField("message", "see photo"))
	part, err := writer.CreateFormFile("image", "stop.png")
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/send-message", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, control.sendFile)
	assert.Equal(t, "stop.png", control.sendFile.Name)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, control.sendFile.Data)
}

func TestSendMessageChannelNotFound(t *testing.T) {
	control := &fakeControl{sendErr: discord.ErrChannelNotFound}
	e := newEcho(NewMessagesHandler(slog.Default(), control))

	rec := postForm(e, "/send-message", map[string]string{
		"channel_id": "gone",
		"send_by":    "dispatch",
		"message":    "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageGatewayError(t *testing.T) {
	control := &fakeControl{sendErr: errors.New("socket closed")}
	e := newEcho(NewMessagesHandler(slog.Default(), control))

	rec := postForm(e, "/send-message", map[string]string{
		"channel_id": "chan-1",
		"send_by":    "dispatch",
		"message":    "hello",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCreateChannel(t *testing.T) {
	control := &fakeControl{}
	e := newEcho(NewChannelsHandler(slog.Default(), control))

	rec := postForm(e, "/create-channel", map[string]string{
		"channel_name": "ticket-42",
		"category_id":  "cat-1",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ticket-42", control.createdName)
	assert.Equal(t, "cat-1", control.createdCategory)

	var resp createChannelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "chan-1", resp.ChannelID)
	assert.Equal(t, "ticket-42", resp.ChannelName)
}

func TestCreateChannelUnknownCategory(t *testing.T) {
	control := &fakeControl{createErr: discord.ErrCategoryNotFound}
	e := newEcho(NewChannelsHandler(slog.Default(), control))

	rec := postForm(e, "/create-channel", map[string]string{
		"channel_name": "ticket-42",
		"category_id":  "missing",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteChannel(t *testing.T) {
	control := &fakeControl{}
	e := newEcho(NewChannelsHandler(slog.Default(), control))

	rec := postForm(e, "/delete-channel", map[string]string{"channel_id": "chan-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "chan-1", control.deletedChannel)
	assert.Contains(t, rec.Body.String(), "deleted successfully")
}

func TestCreateThread(t *testing.T) {
	control := &fakeControl{}
	e := newEcho(NewThreadsHandler(slog.Default(), control, "forum-1"))

	rec := postJSON(e, "/create-thread", map[string]string{
		"title":   "Route 53 diversion",
		"content": "Discuss here",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "forum-1", control.threadForum)
	assert.Equal(t, "Route 53 diversion", control.threadTitle)
	assert.Equal(t, "Discuss here", control.threadContent)

	var resp createThreadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "thread-1", resp.ThreadID)
	assert.Equal(t, "support", resp.ForumName)
}

func TestCreateThreadDefaultsContent(t *testing.T) {
	control := &fakeControl{}
	e := newEcho(NewThreadsHandler(slog.Default(), control, "forum-1"))

	rec := postJSON(e, "/create-thread", map[string]string{"title": "Route 53"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Discussion started via API", control.threadContent)
}

func TestCreateThreadRequiresTitle(t *testing.T) {
	e := newEcho(NewThreadsHandler(slog.Default(), &fakeControl{}, "forum-1"))

	rec := postJSON(e, "/create-thread", map[string]string{"content": "no title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendEmbedDefaults(t *testing.T) {
	control := &fakeControl{}
	e := newEcho(NewEmbedsHandler(slog.Default(), control))

	rec := postJSON(e, "/send-embed", map[string]any{
		"channel_id": "chan-1",
		"embed": map[string]any{
			"title":       "Service Update",
			"description": "Route 53 back on schedule",
			"fields": []map[string]any{
				{"name": "", "value": ""},
				{"name": "Operator", "value": "Stagecoach", "inline": true},
			},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "chan-1", control.embedChannelID)
	assert.Equal(t, defaultEmbedColor, control.embed.Color)
	require.Len(t, control.embed.Fields, 2)
	assert.Equal(t, "Unnamed Field", control.embed.Fields[0].Name)
	assert.Equal(t, "—", control.embed.Fields[0].Value)
	assert.True(t, control.embed.Fields[1].Inline)
}

func TestSendEmbedExplicitColor(t *testing.T) {
	control := &fakeControl{}
	e := newEcho(NewEmbedsHandler(slog.Default(), control))

	rec := postJSON(e, "/send-embed", map[string]any{
		"channel_id": "chan-1",
		"embed": map[string]any{
			"title": "Alert",
			"color": 0xFF0000,
			"footer": map[string]any{
				"text": "MyBusTimes",
			},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0xFF0000, control.embed.Color)
	assert.Equal(t, "MyBusTimes", control.embed.FooterText)
}

func TestSendEmbedRequiresBody(t *testing.T) {
	e := newEcho(NewEmbedsHandler(slog.Default(), &fakeControl{}))

	rec := postJSON(e, "/send-embed", map[string]any{"channel_id": "chan-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
