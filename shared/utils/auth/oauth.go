package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"railzway-console/shared/config"
)

// TokenResponse represents the OAuth2 token endpoint response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// IdentityClaims represents the claims extracted from the ID token
type IdentityClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

type userInfoClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginURL builds the provider authorization URL for the code flow
func LoginURL() string {
	cfg := config.GetConfig()
	scope := "openid profile email"

	return fmt.Sprintf("%s/authorize?response_type=code&client_id=%s&redirect_uri=%s&scope=%s",
		cfg.OAuth2URI, cfg.OAuth2ClientID,
		url.QueryEscape(cfg.OAuth2CallbackURL), url.QueryEscape(scope))
}

// ExchangeCode exchanges the authorization code for tokens
func ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	cfg := config.GetConfig()
	tokenURL := fmt.Sprintf("%s/token", cfg.OAuth2URI)

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", cfg.OAuth2ClientID)
	data.Set("client_secret", cfg.OAuth2ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", cfg.OAuth2CallbackURL)

	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResp, nil
}

// ResolveClaims extracts identity claims from the token response, preferring
// the ID token and falling back to the provider's userinfo endpoint.
func ResolveClaims(ctx context.Context, tokenResp *TokenResponse) (*IdentityClaims, error) {
	if tokenResp == nil {
		return nil, fmt.Errorf("token response missing")
	}

	if strings.TrimSpace(tokenResp.IDToken) != "" {
		if claims, err := ParseIDToken(tokenResp.IDToken); err == nil {
			if strings.TrimSpace(claims.Sub) != "" && strings.TrimSpace(claims.Email) != "" {
				return claims, nil
			}
		}
	}

	info, err := fetchUserInfo(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(info.Sub) == "" || strings.TrimSpace(info.Email) == "" {
		return nil, fmt.Errorf("userinfo missing required claims")
	}

	return &IdentityClaims{
		Sub:   info.Sub,
		Email: info.Email,
		Name:  info.Name,
	}, nil
}

// ParseIDToken parses the ID token JWT and extracts claims.
// TODO: verify the signature against the provider JWKS once key rotation is wired.
func ParseIDToken(idToken string) (*IdentityClaims, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(idToken, &IdentityClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse id_token: %w", err)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	return claims, nil
}

func fetchUserInfo(ctx context.Context, accessToken string) (*userInfoClaims, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("access token missing")
	}
	base := strings.TrimRight(config.GetConfig().OAuth2URI, "/")
	if base == "" {
		return nil, fmt.Errorf("oauth2 uri missing")
	}

	candidates := []string{
		fmt.Sprintf("%s/userinfo", base),
		fmt.Sprintf("%s/oauth/userinfo", base),
	}

	var lastErr error
	for _, target := range candidates {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("userinfo status %d: %s", resp.StatusCode, string(body))
			continue
		}

		var claims userInfoClaims
		if err := json.Unmarshal(body, &claims); err != nil {
			lastErr = err
			continue
		}

		return &claims, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("userinfo request failed")
	}
	return nil, lastErr
}

// SplitName splits a display name into first and last parts
func SplitName(raw string) (string, string) {
	parts := strings.Fields(strings.TrimSpace(raw))
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
