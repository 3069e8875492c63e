package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"bookshelf/internal/domain"
)

// DefaultTimeout bounds a single directory lookup.
const DefaultTimeout = 5 * time.Second

var (
	// ErrUserNotFound means the identity service answered and the user does
	// not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnavailable means the identity service could not be consulted:
	// timeout, connection failure, or an unexpected status. It is never
	// conflated with ErrUserNotFound.
	ErrUnavailable = errors.New("identity service unavailable")
)

// Resolver looks up a user profile by id. Satisfied by *Client; tests swap
// in fakes.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// Client is the book service's view of the identity directory. It performs
// exactly one HTTP call per Resolve, with a bounded timeout and no retries;
// retry and fallback policy belong to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Resolve fetches the profile for userID from the identity directory
// endpoint. A 404 maps to ErrUserNotFound; every other failure mode maps to
// ErrUnavailable.
func (c *Client) Resolve(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserNotFound
	}

	endpoint := fmt.Sprintf("%s/api/auth/users/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Warnf("identity lookup for %s failed: %v", userID, err)
		}
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if c.logger != nil {
			c.logger.Warnf("identity lookup for %s returned status %d", userID, resp.StatusCode)
		}
		return nil, ErrUnavailable
	}

	var profile domain.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		if c.logger != nil {
			c.logger.Warnf("identity lookup for %s returned undecodable body: %v", userID, err)
		}
		return nil, ErrUnavailable
	}
	return &profile, nil
}

var _ Resolver = (*Client)(nil)
