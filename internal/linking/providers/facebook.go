package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"dojotrack/internal/identity"
	"dojotrack/internal/linking"
	dErrors "dojotrack/pkg/domain-errors"
)

const defaultFacebookGraphURL = "https://graph.facebook.com/me"

// FacebookVerifier validates Facebook access tokens against the Graph API
// /me endpoint.
type FacebookVerifier struct {
	graphURL string
	client   *http.Client
}

func NewFacebookVerifier(client *http.Client, graphURL string) *FacebookVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	if graphURL == "" {
		graphURL = defaultFacebookGraphURL
	}
	return &FacebookVerifier{graphURL: graphURL, client: client}
}

type facebookProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (v *FacebookVerifier) Verify(ctx context.Context, cred linking.Credential) (linking.ProviderIdentity, error) {
	if cred.Token == "" {
		return linking.ProviderIdentity{}, dErrors.New(dErrors.CodeInvalidToken, "missing facebook token")
	}

	params := url.Values{
		"fields":       {"id,email,name,picture"},
		"access_token": {cred.Token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.graphURL+"?"+params.Encode(), nil)
	if err != nil {
		return linking.ProviderIdentity{}, fmt.Errorf("create graph request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return linking.ProviderIdentity{}, fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return linking.ProviderIdentity{}, fmt.Errorf("read graph response: %w", err)
	}
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return linking.ProviderIdentity{}, dErrors.New(dErrors.CodeInvalidToken, "facebook rejected the token")
	}
	if resp.StatusCode != http.StatusOK {
		return linking.ProviderIdentity{}, fmt.Errorf("graph fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var profile facebookProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return linking.ProviderIdentity{}, fmt.Errorf("parse graph response: %w", err)
	}
	if profile.ID == "" {
		return linking.ProviderIdentity{}, dErrors.New(dErrors.CodeInvalidToken, "graph response missing id")
	}

	return linking.ProviderIdentity{
		Provider:       identity.ProviderFacebook,
		ProviderUserID: profile.ID,
		Email:          profile.Email,
		DisplayName:    profile.Name,
		ImageURL:       profile.Picture.Data.URL,
	}, nil
}

var _ linking.TokenVerifier = (*FacebookVerifier)(nil)
