package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Badge is one grantable site badge.
type Badge struct {
	BadgeName string `json:"badge_name"`
}

type badgeListResponse struct {
	Badges []Badge `json:"badges"`
}

type addBadgeRequest struct {
	SessionKey string `json:"session_key"`
	Badge      string `json:"badge"`
	User       string `json:"user"`
	Give       bool   `json:"give"`
}

// ListBadges fetches the catalog of grantable badges from the site API.
func (c *Client) ListBadges(ctx context.Context) ([]Badge, error) {
	resp, err := c.get(ctx, c.siteURL+"/all-available-badges/")
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer drain(resp)
		return nil, statusError("list badges", resp)
	}
	var body badgeListResponse
	if err := decodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf("decode badges: %w", err)
	}
	return body.Badges, nil
}

// GiveBadge authenticates against the site API and grants (or revokes) a
// badge for the named site user. The session key lives only for this call.
func (c *Client) GiveBadge(ctx context.Context, user, badge string, give bool) error {
	resp, err := c.postJSON(ctx, c.siteURL+"/user/", authRequest{
		Username: c.username,
		Password: c.password,
	}, nil)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp)
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}
	var auth authResponse
	if err := decodeJSON(resp, &auth); err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if auth.SessionKey == "" {
		return fmt.Errorf("%w: response missing session_key", ErrAuth)
	}

	resp, err = c.postJSON(ctx, c.siteURL+"/user/add_badge/", addBadgeRequest{
		SessionKey: auth.SessionKey,
		Badge:      badge,
		User:       user,
		Give:       give,
	}, nil)
	if err != nil {
		return fmt.Errorf("add badge: %w", err)
	}
	defer drain(resp)
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: add badge rejected", ErrAuth)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("add badge: %w", ErrNotFound)
	default:
		return statusError("add badge", resp)
	}
}

// Vehicle is one fleet search result. The backend's field set varies per
// operator, so results stay as ordered key/value access via the raw map.
type Vehicle map[string]any

// FleetSearch queries the fleet API by registration, fleet number, and
// operator name; empty parameters are sent blank, matching the site's
// filter semantics.
func (c *Client) FleetSearch(ctx context.Context, reg, fleetNumber, operatorName string) ([]Vehicle, error) {
	q := url.Values{}
	q.Set("operator__operator_name", operatorName)
	q.Set("fleet_number", fleetNumber)
	q.Set("reg", reg)
	resp, err := c.get(ctx, c.baseURL+"/operator/fleet/?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fleet search: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer drain(resp)
		return nil, statusError("fleet search", resp)
	}
	var vehicles []Vehicle
	if err := decodeJSON(resp, &vehicles); err != nil {
		return nil, fmt.Errorf("decode fleet results: %w", err)
	}
	return vehicles, nil
}
