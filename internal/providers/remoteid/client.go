// Package remoteid talks to the hosted identity and profile API. It caches
// the last known remote session and notifies listeners when it changes.
package remoteid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"inkwell/internal/domain"
)

// Config controls the remote API client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client implements ports.RemoteIdentitySession and ports.RemoteProfileWriter.
type Client struct {
	cfg  Config
	http *http.Client

	mu       sync.Mutex
	user     *domain.Identity
	onChange []func(*domain.Identity)
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.inkwell.app/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// CurrentUser returns the cached remote session user, nil when absent.
func (c *Client) CurrentUser() *domain.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// OnChange registers a callback fired whenever the cached session changes.
func (c *Client) OnChange(fn func(*domain.Identity)) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Refresh fetches the current remote session. Called at startup and whenever
// a push notification signals that the session may have changed.
func (c *Client) Refresh(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/session", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching remote session: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var identity domain.Identity
		if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
			return fmt.Errorf("decoding remote session: %w", err)
		}
		if identity.ID == "" {
			return errors.New("remote session has no user id")
		}
		c.setUser(&identity)
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound:
		c.setUser(nil)
		return nil
	default:
		return fmt.Errorf("fetching remote session: unexpected status %d", resp.StatusCode)
	}
}

// UpsertProfile writes the onboarding profile. Best effort from the caller's
// perspective; there is no retry here.
func (c *Client) UpsertProfile(ctx context.Context, fields domain.ProfileFields) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/profile", bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("writing profile: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// AppendReflection appends one journaling reflection to the remote profile.
func (c *Client) AppendReflection(ctx context.Context, text string, meta map[string]string) error {
	payload := struct {
		ID   string            `json:"id"`
		Text string            `json:"text"`
		Meta map[string]string `json:"meta,omitempty"`
	}{
		ID:   uuid.NewString(),
		Text: text,
		Meta: meta,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding reflection: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/reflections", bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("appending reflection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("appending reflection: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("remote API key is not configured")
	}

	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	}
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) setUser(user *domain.Identity) {
	c.mu.Lock()
	previous := c.user
	c.user = user
	callbacks := make([]func(*domain.Identity), len(c.onChange))
	copy(callbacks, c.onChange)
	c.mu.Unlock()

	if sameUser(previous, user) {
		return
	}
	for _, fn := range callbacks {
		fn(user)
	}
}

func sameUser(a, b *domain.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
