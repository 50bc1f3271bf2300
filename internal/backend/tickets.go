package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrAuth marks a failed session-key exchange. Relay attempts that hit it
// abort for their event only.
var ErrAuth = errors.New("backend: authentication failed")

// Ticket is a backend support conversation bound to a Discord channel.
// This client only ever looks tickets up; the site creates them.
type Ticket struct {
	ID               int64  `json:"id"`
	DiscordChannelID string `json:"discord_channel_id"`
	Subject          string `json:"subject"`
	Status           string `json:"status"`
}

// SessionToken is a short-lived credential for the authenticated ticket
// endpoints. Owned by the single relay attempt that requested it; never
// cached across events.
type SessionToken string

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	SessionKey string `json:"session_key"`
}

type ticketMessageRequest struct {
	Content        string `json:"content"`
	SenderUsername string `json:"sender_username"`
}

// LookupTicket finds the ticket bound to a Discord channel. A non-200
// answer means no ticket (ErrNotFound); only transport failures surface as
// other errors.
func (c *Client) LookupTicket(ctx context.Context, channelID string) (Ticket, error) {
	u := c.baseURL + "/tickets/?discord_channel_id=" + url.QueryEscape(channelID)
	resp, err := c.get(ctx, u)
	if err != nil {
		return Ticket{}, fmt.Errorf("lookup ticket: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp)
		return Ticket{}, ErrNotFound
	}
	var ticket Ticket
	if err := decodeJSON(resp, &ticket); err != nil {
		return Ticket{}, fmt.Errorf("decode ticket: %w", err)
	}
	return ticket, nil
}

// Authenticate exchanges the configured operator credentials for a session
// key. Any non-2xx answer or a missing session_key field is an auth
// failure.
func (c *Client) Authenticate(ctx context.Context) (SessionToken, error) {
	resp, err := c.postJSON(ctx, c.baseURL+"/user/", authRequest{
		Username: c.username,
		Password: c.password,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp)
		return "", fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}
	var body authResponse
	if err := decodeJSON(resp, &body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if body.SessionKey == "" {
		return "", fmt.Errorf("%w: response missing session_key", ErrAuth)
	}
	return SessionToken(body.SessionKey), nil
}

// PostTicketMessage relays a message into a ticket through the
// session-key-authenticated endpoint. With an attachment the body is
// multipart form data with the file under the "file" part.
func (c *Client) PostTicketMessage(ctx context.Context, token SessionToken, ticketID int64, content, sender string, file *FilePart) error {
	u := fmt.Sprintf("%s/key-auth/%d/messages", c.baseURL, ticketID)
	headers := map[string]string{"Authorization": string(token)}

	var resp *http.Response
	var err error
	if file == nil {
		resp, err = c.postJSON(ctx, u, ticketMessageRequest{
			Content:        content,
			SenderUsername: sender,
		}, headers)
	} else {
		fields := map[string]string{
			"content":         content,
			"sender_username": sender,
		}
		resp, err = c.postMultipart(ctx, u, fields, file, headers)
	}
	if err != nil {
		return fmt.Errorf("post ticket message: %w", err)
	}
	defer drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("post ticket message", resp)
	}
	return nil
}
