package habbo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the public Habbo profile API. Only the motto field of a
// public profile is ever read; the portal never authenticates against the
// game.
type Client struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

type profileResponse struct {
	Name                string `json:"name"`
	Motto               string `json:"motto"`
	ProfileVisible      bool   `json:"profileVisible"`
	FigureString        string `json:"figureString"`
	MemberSince         string `json:"memberSince"`
	LastAccessTime      string `json:"lastAccessTime"`
	SelectedBadgesCount int    `json:"-"`
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// GetMotto fetches the public motto for a habbo name.
func (c *Client) GetMotto(ctx context.Context, habboName string) (string, error) {
	endpoint := fmt.Sprintf("%s/users?name=%s", c.baseURL, url.QueryEscape(habboName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("request creation error: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("profile request failed", "error", err, "habbo_name", habboName)
		return "", fmt.Errorf("profile request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("response read error: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("habbo profile not found: %s", habboName)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("profile API returned error",
			"status", resp.StatusCode,
			"habbo_name", habboName)
		return "", fmt.Errorf("profile API error: status %d", resp.StatusCode)
	}

	var profile profileResponse
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", fmt.Errorf("response unmarshal error: %w", err)
	}

	return profile.Motto, nil
}

// MottoContains reports whether the code appears verbatim in the profile
// motto.
func (c *Client) MottoContains(ctx context.Context, habboName, code string) (bool, error) {
	motto, err := c.GetMotto(ctx, habboName)
	if err != nil {
		return false, err
	}

	found := strings.Contains(motto, code)
	c.logger.Info("motto verification checked",
		"habbo_name", habboName,
		"found", found)
	return found, nil
}
