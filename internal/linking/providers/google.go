// Package providers holds the per-provider credential verifiers behind the
// linking.TokenVerifier interface.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dojotrack/internal/identity"
	"dojotrack/internal/linking"
	dErrors "dojotrack/pkg/domain-errors"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleVerifier validates Google access tokens against the userinfo
// endpoint. The endpoint URL is overridable for tests.
type GoogleVerifier struct {
	userInfoURL string
	client      *http.Client
}

func NewGoogleVerifier(client *http.Client, userInfoURL string) *GoogleVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}
	return &GoogleVerifier{userInfoURL: userInfoURL, client: client}
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, cred linking.Credential) (linking.ProviderIdentity, error) {
	if cred.Token == "" {
		return linking.ProviderIdentity{}, dErrors.New(dErrors.CodeInvalidToken, "missing google token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return linking.ProviderIdentity{}, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := v.client.Do(req)
	if err != nil {
		return linking.ProviderIdentity{}, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return linking.ProviderIdentity{}, fmt.Errorf("read userinfo response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return linking.ProviderIdentity{}, dErrors.New(dErrors.CodeInvalidToken, "google rejected the token")
	}
	if resp.StatusCode != http.StatusOK {
		return linking.ProviderIdentity{}, fmt.Errorf("userinfo fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return linking.ProviderIdentity{}, fmt.Errorf("parse userinfo response: %w", err)
	}
	if info.Sub == "" {
		return linking.ProviderIdentity{}, dErrors.New(dErrors.CodeInvalidToken, "userinfo response missing subject")
	}

	return linking.ProviderIdentity{
		Provider:       identity.ProviderGoogle,
		ProviderUserID: info.Sub,
		Email:          info.Email,
		DisplayName:    info.Name,
		ImageURL:       info.Picture,
	}, nil
}

var _ linking.TokenVerifier = (*GoogleVerifier)(nil)
