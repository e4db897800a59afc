// Package dropbox implements the backend.Client interface on top of the
// Dropbox HTTP API: files/upload for single-request transfers and the
// upload_session start/append_v2/finish triple for chunked ones. Token
// refresh is delegated to golang.org/x/oauth2.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf16"

	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/dropship/internal/backend"
)

const (
	defaultAPIBase     = "https://api.dropboxapi.com"
	defaultContentBase = "https://content.dropboxapi.com"
	tokenURL           = "https://api.dropboxapi.com/oauth2/token"

	// Dropbox recommends multiples of 4 MiB for session chunks.
	chunkSize = 4 * 1024 * 1024
)

// Credentials holds either a refresh-token triple (preferred, auto-refresh)
// or a single long-lived access token (legacy fallback).
type Credentials struct {
	AccessToken  string
	AppKey       string
	AppSecret    string
	RefreshToken string
}

// Client is a Dropbox API client. Not safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	apiBase     string
	contentBase string
}

// NewClient builds a Client from creds. The refresh-token triple wins over
// the access token when both are present. Returns backend.ErrAuth when no
// usable credential is configured.
func NewClient(ctx context.Context, creds Credentials) (*Client, error) {
	src, err := tokenSource(ctx, creds)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient:  oauth2.NewClient(ctx, src),
		apiBase:     defaultAPIBase,
		contentBase: defaultContentBase,
	}, nil
}

func tokenSource(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
	if creds.RefreshToken != "" && creds.AppKey != "" && creds.AppSecret != "" {
		conf := &oauth2.Config{
			ClientID:     creds.AppKey,
			ClientSecret: creds.AppSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		}
		return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}), nil
	}

	if creds.AccessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken}), nil
	}

	return nil, fmt.Errorf("no credentials provided, set DROPBOX_APP_KEY/DROPBOX_APP_SECRET/DROPBOX_REFRESH_TOKEN or DROPBOX_TOKEN: %w", backend.ErrAuth)
}

func (c *Client) CurrentAccount(ctx context.Context) (*backend.Account, error) {
	var res accountResponse
	if err := c.rpc(ctx, "/2/users/get_current_account", nil, &res); err != nil {
		return nil, err
	}
	return &backend.Account{DisplayName: res.Name.DisplayName}, nil
}

func (c *Client) Upload(ctx context.Context, commit backend.CommitInfo, content []byte) (*backend.Metadata, error) {
	arg := uploadArg{Path: commit.Path, Mode: writeMode(commit.Overwrite), Mute: true}

	var md fileMetadata
	if err := c.content(ctx, "/2/files/upload", arg, content, &md); err != nil {
		return nil, err
	}
	return toMetadata(&md), nil
}

func (c *Client) StartSession(ctx context.Context, content []byte) (string, error) {
	var res sessionStartResponse
	if err := c.content(ctx, "/2/files/upload_session/start", sessionStartArg{}, content, &res); err != nil {
		return "", err
	}
	return res.SessionID, nil
}

func (c *Client) AppendSession(ctx context.Context, cursor backend.Cursor, content []byte) error {
	arg := sessionAppendArg{Cursor: sessionCursor{SessionID: cursor.SessionID, Offset: cursor.Offset}}
	return c.content(ctx, "/2/files/upload_session/append_v2", arg, content, nil)
}

func (c *Client) FinishSession(ctx context.Context, cursor backend.Cursor, commit backend.CommitInfo, content []byte) (*backend.Metadata, error) {
	arg := sessionFinishArg{
		Cursor: sessionCursor{SessionID: cursor.SessionID, Offset: cursor.Offset},
		Commit: commitInfo{Path: commit.Path, Mode: writeMode(commit.Overwrite), Mute: true},
	}

	var md fileMetadata
	if err := c.content(ctx, "/2/files/upload_session/finish", arg, content, &md); err != nil {
		return nil, err
	}
	return toMetadata(&md), nil
}

func (c *Client) ChunkSize() int64 { return chunkSize }

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// rpc calls an RPC-style endpoint on the api host: the argument travels as
// the JSON request body.
func (c *Client) rpc(ctx context.Context, endpoint string, arg, res any) error {
	body, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("marshal %s arg: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, res)
}

// content calls a content-style endpoint on the content host: the argument
// travels in the Dropbox-API-Arg header and the payload as the request body.
func (c *Client) content(ctx context.Context, endpoint string, arg any, payload []byte, res any) error {
	header, err := apiArgHeader(arg)
	if err != nil {
		return fmt.Errorf("marshal %s arg: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentBase+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Dropbox-API-Arg", header)
	req.Header.Set("Content-Type", "application/octet-stream")

	return c.do(req, endpoint, res)
}

func (c *Client) do(req *http.Request, endpoint string, res any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classify(endpoint, resp)
	}

	if res == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// classify turns a non-200 response into an *APIError, wrapping the matching
// classification sentinel where the failure is recognizable.
func classify(endpoint string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	summary := ""
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		summary = apiErr.ErrorSummary
	}
	if summary == "" {
		summary = strings.TrimSpace(string(body))
	}

	e := &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Summary: summary}

	lower := strings.ToLower(summary)
	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		strings.Contains(lower, "invalid_access_token"),
		strings.Contains(lower, "expired_access_token"):
		e.Err = backend.ErrAuth
	case strings.Contains(lower, "conflict"):
		e.Err = backend.ErrPathConflict
	case strings.Contains(lower, "insufficient_space"):
		e.Err = backend.ErrInsufficientSpace
	}

	return e
}

func writeMode(overwrite bool) string {
	if overwrite {
		return "overwrite"
	}
	return "add"
}

func toMetadata(md *fileMetadata) *backend.Metadata {
	return &backend.Metadata{Name: md.Name, PathDisplay: md.PathDisplay, Size: md.Size}
}

// apiArgHeader serializes arg for the Dropbox-API-Arg header. HTTP headers
// must stay within ASCII, so multibyte runes are escaped as \uXXXX.
func apiArgHeader(arg any) (string, error) {
	b, err := json.Marshal(arg)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, r := range string(b) {
		switch {
		case r < 0x80:
			sb.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, "\\u%04x\\u%04x", hi, lo)
		default:
			fmt.Fprintf(&sb, "\\u%04x", r)
		}
	}
	return sb.String(), nil
}
