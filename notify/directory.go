package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPDirectory implements auction.Directory against the chat surface's
// channel lookup endpoint: GET {base}/channels/{id} answering 200 when
// the channel exists and 404 when it does not.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewHTTPDirectory creates a directory client for the given base URL.
func NewHTTPDirectory(baseURL string, log *slog.Logger) *HTTPDirectory {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// ChannelExists reports whether the chat surface still has the channel.
func (d *HTTPDirectory) ChannelExists(ctx context.Context, channelID int64) (bool, error) {
	url := fmt.Sprintf("%s/channels/%d", d.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("checking channel %d: %w", channelID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("checking channel %d: unexpected status %d", channelID, resp.StatusCode)
	}
}

// StaticDirectory reports every channel as existing. It serves
// deployments without a directory endpoint.
type StaticDirectory struct{}

func (StaticDirectory) ChannelExists(context.Context, int64) (bool, error) { return true, nil }
