package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neststoplabs/mbtbridge/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(nil, config.BackendConfig{
		BaseURL:  srv.URL,
		SiteURL:  srv.URL + "/site",
		Username: "operator",
		Password: "hunter2",
	})
	return client, srv
}

func TestThreadExists(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"found", http.StatusOK, true},
		{"absent", http.StatusNotFound, false},
		// Any status other than 404 counts as present: the caller must
		// under-create rather than risk a duplicate thread record.
		{"server error counts as present", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
			}))

			exists, err := client.ThreadExists(context.Background(), "thread-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, exists)
			assert.Equal(t, "/check-thread/thread-1/", gotPath)
		})
	}
}

func TestCreateThread(t *testing.T) {
	var got map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/create-thread/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	err := client.CreateThread(context.Background(), "thread-1", "forum-1", ThreadMeta{
		Title:     "Route 53 diversion",
		CreatedBy: "rider",
		FirstPost: "any update?",
	})
	require.NoError(t, err)
	assert.Equal(t, "thread-1", got["discord_channel_id"])
	assert.Equal(t, "forum-1", got["forum_id"])
	assert.Equal(t, "Route 53 diversion", got["title"])
	assert.Equal(t, "rider", got["created_by"])
	assert.Equal(t, "any update?", got["first_post"])
}

func TestCreateThreadRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate", http.StatusConflict)
	}))

	err := client.CreateThread(context.Background(), "thread-1", "forum-1", ThreadMeta{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

func TestPostThreadMessageJSON(t *testing.T) {
	var gotContentType string
	var got ThreadMessage
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/discord-message/", r.URL.Path)
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	msg := ThreadMessage{ThreadChannelID: "thread-1", ForumID: "forum-1", Author: "rider", Content: "hi"}
	require.NoError(t, client.PostThreadMessage(context.Background(), msg, nil))
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, msg, got)
}

func TestPostThreadMessageMultipart(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "thread-1", r.FormValue("thread_channel_id"))
		assert.Equal(t, "forum-1", r.FormValue("forum_id"))
		assert.Equal(t, "rider", r.FormValue("author"))
		assert.Equal(t, "look", r.FormValue("content"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "stop.png", header.Filename)
		w.WriteHeader(http.StatusOK)
	}))

	msg := ThreadMessage{ThreadChannelID: "thread-1", ForumID: "forum-1", Author: "rider", Content: "look"}
	file := &FilePart{FieldName: "image", Filename: "stop.png", Data: []byte{0x89, 0x50}}
	require.NoError(t, client.PostThreadMessage(context.Background(), msg, file))
}

func TestPostThreadMessageFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))

	err := client.PostThreadMessage(context.Background(), ThreadMessage{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
