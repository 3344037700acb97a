package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/common"
)

// HTTPClient implements Client over the JSON API. It is safe for
// concurrent use.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	tokens TokenPair
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			// attachment links are handed to the user, not followed
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
}

func (c *HTTPClient) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.AccessToken
}

func (c *HTTPClient) setTokens(p TokenPair) {
	c.mu.Lock()
	c.tokens = p
	c.mu.Unlock()
}

func (c *HTTPClient) LoggedIn() bool {
	return c.accessToken() != ""
}

func (c *HTTPClient) send(ctx context.Context, method, path string, authed bool, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		tok := c.accessToken()
		if tok == "" {
			return nil, ErrNotLoggedIn
		}
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// call sends the request and, for authenticated calls answered with
// token_expired, refreshes the token pair and retries once.
func (c *HTTPClient) call(ctx context.Context, method, path string, authed bool, in any) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, authed, in)
	if err != nil {
		return nil, err
	}
	if !authed || resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	apiErr := decodeError(resp)
	if apiErr.Class != ClassTokenExpired {
		return nil, apiErr
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, authed, in)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, authed bool, in, out any) error {
	resp, err := c.call(ctx, method, path, authed, in)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError reads and closes the body of a failed response.
func decodeError(resp *http.Response) *APIError {
	defer resp.Body.Close()
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Class, apiErr.Message = body.Error, body.Message
	}
	return apiErr
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	c.mu.Lock()
	rt := c.tokens.RefreshToken
	c.mu.Unlock()
	if rt == "" {
		return ErrNotLoggedIn
	}

	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", false, map[string]string{"refresh_token": rt}, &pair); err != nil {
		c.setTokens(TokenPair{})
		return err
	}
	c.setTokens(pair)
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", false, nil, nil)
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) (*User, error) {
	var u User
	in := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", false, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	var pair TokenPair
	in := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", false, in, &pair); err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}

// Logout revokes the session on the server and forgets the tokens locally,
// even when the server cannot be reached.
func (c *HTTPClient) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", true, nil, nil)
	c.setTokens(TokenPair{})
	return err
}

func (c *HTTPClient) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", true, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) Board(ctx context.Context) ([]BoardCategory, error) {
	var out []BoardCategory
	if err := c.do(ctx, http.MethodGet, "/api/v1/challenges", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Challenge(ctx context.Context, id string) (*ChallengeDetail, error) {
	var out ChallengeDetail
	if err := c.do(ctx, http.MethodGet, "/api/v1/challenges/"+url.PathEscape(id), true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Submit(ctx context.Context, id, flag string) (*SubmitResult, error) {
	var out SubmitResult
	path := "/api/v1/challenges/" + url.PathEscape(id) + "/submit"
	if err := c.do(ctx, http.MethodPost, path, true, map[string]string{"flag": flag}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AttachmentURL returns the presigned link the server redirects to.
func (c *HTTPClient) AttachmentURL(ctx context.Context, id, file string) (string, error) {
	path := "/api/v1/challenges/" + url.PathEscape(id) + "/files/" + url.PathEscape(file)
	resp, err := c.call(ctx, http.MethodGet, path, true, nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusTemporaryRedirect {
		return "", decodeError(resp)
	}
	resp.Body.Close()
	return resp.Header.Get("Location"), nil
}

func (c *HTTPClient) Scoreboard(ctx context.Context) ([]ScoreboardRow, error) {
	var out []ScoreboardRow
	if err := c.do(ctx, http.MethodGet, "/api/v1/scoreboard", false, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Teams(ctx context.Context) ([]TeamSummary, error) {
	var out []TeamSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/teams", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Team(ctx context.Context, id string) (*TeamView, error) {
	var out TeamView
	if err := c.do(ctx, http.MethodGet, "/api/v1/teams/"+url.PathEscape(id), true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateTeam(ctx context.Context, name string) (*Team, error) {
	var out Team
	if err := c.do(ctx, http.MethodPost, "/api/v1/teams", true, map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) JoinTeam(ctx context.Context, inviteCode string) (*Team, error) {
	var out Team
	if err := c.do(ctx, http.MethodPost, "/api/v1/teams/join", true, map[string]string{"invite_code": inviteCode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) LeaveTeam(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/teams/leave", true, nil, nil)
}

func (c *HTTPClient) Reload(ctx context.Context) (*LoadReport, error) {
	var out LoadReport
	if err := c.do(ctx, http.MethodPost, "/api/v1/admin/reload", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
