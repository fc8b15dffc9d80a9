package lark

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// tenantTokenSource fetches tenant access tokens. Wrapped in
// oauth2.ReuseTokenSource it only hits the network once a token expires.
type tenantTokenSource struct {
	client    *Client
	tenantKey string
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	AppAccessToken    string `json:"app_access_token"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

func (s *tenantTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.client.timeout)
	defer cancel()

	if s.tenantKey == "" {
		resp, err := s.fetch(ctx, "/auth/v3/tenant_access_token/internal", map[string]string{
			"app_id":     s.client.appID,
			"app_secret": s.client.appSecret,
		})
		if err != nil {
			return nil, err
		}
		return newToken(resp.TenantAccessToken, resp.Expire), nil
	}

	app, err := s.fetch(ctx, "/auth/v3/app_access_token/internal", map[string]string{
		"app_id":     s.client.appID,
		"app_secret": s.client.appSecret,
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.fetch(ctx, "/auth/v3/tenant_access_token", map[string]string{
		"app_access_token": app.AppAccessToken,
		"tenant_key":       s.tenantKey,
	})
	if err != nil {
		return nil, err
	}
	return newToken(resp.TenantAccessToken, resp.Expire), nil
}

// fetch calls a token endpoint. Token endpoints do not use the data envelope.
func (s *tenantTokenSource) fetch(ctx context.Context, path string, body map[string]string) (tokenResponse, error) {
	resp, err := postJSON[tokenResponse](ctx, s.client.base, s.client.url(path), body)
	if err != nil {
		return resp, fmt.Errorf("failed to get lark token: %w", err)
	}
	if resp.Code != 0 {
		return resp, &APIError{StatusCode: http.StatusOK, Code: resp.Code, Msg: resp.Msg}
	}
	return resp, nil
}

func newToken(accessToken string, expireSeconds int) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Duration(expireSeconds) * time.Second),
	}
}
