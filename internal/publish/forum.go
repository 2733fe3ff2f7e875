package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/forksync/internal/config"
)

// ForumNotifier posts replies to a fixed XenForo thread.
type ForumNotifier struct {
	httpClient *http.Client
	cfg        config.ForumConfig
}

// NewForumNotifier builds the notifier. Returns nil when the forum config is
// incomplete, which disables notification.
func NewForumNotifier(fc config.ForumConfig) *ForumNotifier {
	if fc.APIKey == "" || fc.BaseURL == "" || fc.ThreadID == 0 {
		return nil
	}
	return &ForumNotifier{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cfg:        fc,
	}
}

// Notify creates a reply in the configured thread.
func (n *ForumNotifier) Notify(ctx context.Context, message string) error {
	form := url.Values{
		"thread_id": {strconv.Itoa(n.cfg.ThreadID)},
		"message":   {message},
	}

	endpoint := strings.TrimSuffix(n.cfg.BaseURL, "/") + "/posts/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("XF-Api-Key", n.cfg.APIKey)
	req.Header.Set("XF-Api-User", n.cfg.APIUser)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("forum API error: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return nil
}
