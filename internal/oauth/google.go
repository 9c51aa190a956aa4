// Package oauth links external identity-provider accounts. Only the claim
// contract matters to callers: the provider's email is trusted as
// authoritative for account linking.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fixmycar/diagnostic-service/internal/config"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Profile holds the identity claims returned by the provider.
type Profile struct {
	Email         string
	Name          string
	AvatarURL     string
	EmailVerified bool
}

// ProfileFetcher exchanges an authorization code for trusted profile claims.
type ProfileFetcher interface {
	AuthCodeURL(redirectURI, state string) string
	Exchange(ctx context.Context, code, redirectURI string) (*Profile, error)
}

// GoogleClient implements ProfileFetcher against Google's OAuth2 endpoints.
type GoogleClient struct {
	clientID     string
	clientSecret string
	http         *http.Client
}

// NewGoogleClient builds the client from configuration.
func NewGoogleClient(cfg config.GoogleConfig) *GoogleClient {
	return &GoogleClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthCodeURL builds the consent-screen redirect target.
func (g *GoogleClient) AuthCodeURL(redirectURI, state string) string {
	params := url.Values{
		"client_id":     {g.clientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
	}
	return googleAuthURL + "?" + params.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type userInfoResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange trades an authorization code for the provider's profile claims.
func (g *GoogleClient) Exchange(ctx context.Context, code, redirectURI string) (*Profile, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange: unexpected status %d", resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("token exchange: decode response: %w", err)
	}

	infoReq, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	infoReq.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	infoResp, err := g.http.Do(infoReq)
	if err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	defer infoResp.Body.Close()

	if infoResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: unexpected status %d", infoResp.StatusCode)
	}

	var info userInfoResponse
	if err := json.NewDecoder(infoResp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("userinfo: decode response: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("userinfo: provider returned no email")
	}

	return &Profile{
		Email:         info.Email,
		Name:          info.Name,
		AvatarURL:     info.Picture,
		EmailVerified: info.VerifiedEmail,
	}, nil
}
