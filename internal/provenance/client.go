// Package provenance calls the external identity bridge that vouches
// for principals arriving without a password. The bridge holds
// short-lived sessions keyed by an opaque id; exchanging the id yields
// the verified identity behind it.
package provenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// Identity is the verified external identity behind a provenance
// session.
type Identity struct {
	ExternalID string  `json:"external_id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	PictureURL *string `json:"picture_url,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient points the client at the bridge base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Exchange resolves a provenance session id into a verified identity.
// An unknown or expired session surfaces as ErrUnauthenticated.
func (c *Client) Exchange(ctx context.Context, sessionID string) (*Identity, error) {
	const op = "provenance.Exchange"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/session", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("X-Session-ID", sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	default:
		return nil, fmt.Errorf("%s: %w", op, errors.New("unexpected status: "+resp.Status))
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if identity.ExternalID == "" || identity.Email == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	}
	return &identity, nil
}
