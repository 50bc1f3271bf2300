package backend

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
)

// ThreadMeta is the metadata sent when a thread record is first created.
type ThreadMeta struct {
	Title     string
	CreatedBy string
	FirstPost string
}

type createThreadRequest struct {
	DiscordChannelID string `json:"discord_channel_id"`
	ForumID          string `json:"forum_id"`
	Title            string `json:"title"`
	CreatedBy        string `json:"created_by"`
	FirstPost        string `json:"first_post"`
}

// ThreadMessage is one relayed post into a forum thread or flat channel.
type ThreadMessage struct {
	ThreadChannelID string `json:"thread_channel_id"`
	ForumID         string `json:"forum_id"`
	Author          string `json:"author"`
	Content         string `json:"content"`
}

// FilePart is a binary form part attached to a relay call.
type FilePart struct {
	FieldName string
	Filename  string
	Data      []byte
}

// ThreadExists checks whether a thread record exists for the given channel
// identifier. Only a 404 means absent; any other status, including errors,
// is reported as present so the caller under-creates rather than
// duplicate-creates.
func (c *Client) ThreadExists(ctx context.Context, threadID string) (bool, error) {
	resp, err := c.get(ctx, c.baseURL+"/check-thread/"+threadID+"/")
	if err != nil {
		return false, fmt.Errorf("check thread: %w", err)
	}
	defer drain(resp)
	return resp.StatusCode != http.StatusNotFound, nil
}

// CreateThread registers a new thread record bound to the Discord channel
// identifier. The backend deduplicates on that key.
func (c *Client) CreateThread(ctx context.Context, threadID, forumID string, meta ThreadMeta) error {
	payload := createThreadRequest{
		DiscordChannelID: threadID,
		ForumID:          forumID,
		Title:            meta.Title,
		CreatedBy:        meta.CreatedBy,
		FirstPost:        meta.FirstPost,
	}
	resp, err := c.postJSON(ctx, c.baseURL+"/create-thread/", payload, nil)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	defer drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("create thread", resp)
	}
	c.logger.Info("thread record created",
		slog.String("thread_id", threadID),
		slog.String("forum_id", forumID),
	)
	return nil
}

// PostThreadMessage relays a message into a thread. Without an attachment
// the body is JSON; with one it becomes multipart form data carrying the
// same fields plus the file under the "image" part. Same operation, two
// content shapes.
func (c *Client) PostThreadMessage(ctx context.Context, msg ThreadMessage, file *FilePart) error {
	url := c.baseURL + "/discord-message/"

	if file == nil {
		resp, err := c.postJSON(ctx, url, msg, nil)
		if err != nil {
			return fmt.Errorf("post thread message: %w", err)
		}
		defer drain(resp)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return statusError("post thread message", resp)
		}
		return nil
	}

	fields := map[string]string{
		"thread_channel_id": msg.ThreadChannelID,
		"forum_id":          msg.ForumID,
		"author":            msg.Author,
		"content":           msg.Content,
	}
	resp, err := c.postMultipart(ctx, url, fields, file, nil)
	if err != nil {
		return fmt.Errorf("post thread message: %w", err)
	}
	defer drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("post thread message", resp)
	}
	return nil
}

func (c *Client) postMultipart(ctx context.Context, url string, fields map[string]string, file *FilePart, headers map[string]string) (*http.Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write form field: %w", err)
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(file.FieldName, file.Filename)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, fmt.Errorf("write form file: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.httpClient.Do(req)
}
