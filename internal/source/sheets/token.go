package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/session"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/source"
)

// TokenEndpoint exchanges refresh tokens for fresh token pairs against
// the backend's token endpoint. It implements session.TokenSource.
type TokenEndpoint struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

// NewTokenEndpoint creates a token source for the given endpoint URL.
// A zero timeout defaults to 15 seconds.
func NewTokenEndpoint(url string, timeout time.Duration) *TokenEndpoint {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TokenEndpoint{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// Refresh exchanges refreshToken for a new token pair. A rejected refresh
// token comes back as an auth error; callers should drop the session.
func (t *TokenEndpoint) Refresh(
	ctx context.Context,
	refreshToken string,
) (session.TokenPair, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("marshaling token request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, t.url, bytes.NewReader(body),
	)
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return session.TokenPair{}, &source.Error{
			Kind: source.KindNetwork,
			Op:   "refresh token",
			Err:  err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return session.TokenPair{}, &source.Error{
			Kind: source.KindNetwork,
			Op:   "refresh token",
			Err:  err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := statusKind(resp.StatusCode)
		// An invalid or revoked refresh token comes back as 400.
		if resp.StatusCode == http.StatusBadRequest {
			kind = source.KindAuth
		}
		return session.TokenPair{}, &source.Error{
			Kind:    kind,
			Op:      "refresh token",
			Message: errorMessage(resp.StatusCode, respBody),
		}
	}

	var tr TokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return session.TokenPair{}, &source.Error{
			Kind:    source.KindValidation,
			Op:      "refresh token",
			Message: "unexpected response shape",
			Err:     err,
		}
	}
	if tr.AccessToken == "" {
		return session.TokenPair{}, &source.Error{
			Kind:    source.KindAuth,
			Op:      "refresh token",
			Message: "response carried no access token",
		}
	}

	now := t.now()
	pair := session.TokenPair{
		UserID:       tr.UserID,
		AccessToken:  tr.AccessToken,
		AccessExpiry: now.Add(time.Duration(tr.ExpiresIn) * time.Second),
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn <= 0 {
		pair.AccessExpiry = now.Add(time.Hour)
	}
	if pair.RefreshToken == "" {
		// The endpoint did not rotate the refresh token; keep the old one.
		pair.RefreshToken = refreshToken
	}
	if tr.RefreshExpiresIn > 0 {
		pair.RefreshExpiry = now.Add(time.Duration(tr.RefreshExpiresIn) * time.Second)
	}

	return pair, nil
}
