package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"

	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/common"
)

// HTTPClient implements Client over HTTP/JSON.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	headers http.Header
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *HTTPClient) { c.headers.Set(key, value) }
}

// NewHTTPClient returns a client for the API rooted at baseURL
// (e.g. "http://localhost:8000/api").
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		headers: http.Header{},
	}
	c.headers.Set("Accept", "application/json")
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetToken installs token as the default Authorization header. An empty
// token removes it.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token == "" {
		c.headers.Del(common.AuthorizationHeaderName)
		return
	}
	c.headers.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
}

// Header returns a copy of the default headers. The realtime socket reuses
// them for its handshake.
func (c *HTTPClient) Header() http.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Clone()
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (models.RawRecord, error) {
	var out models.RawRecord
	if err := c.do(ctx, http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	raws, err := c.getList(ctx, "/conversations", "conversations")
	if err != nil {
		return nil, err
	}
	out := make([]models.Conversation, 0, len(raws))
	for _, r := range raws {
		out = append(out, ConversationFromRaw(r))
	}
	return out, nil
}

func (c *HTTPClient) CreateConversation(ctx context.Context, req CreateConversationRequest) (models.Conversation, bool, error) {
	var out models.RawRecord
	if err := c.do(ctx, http.MethodPost, "/conversations", req, &out); err != nil {
		return models.Conversation{}, false, err
	}
	conv, existing := createResponse(out)
	if conv.ID == "" {
		return models.Conversation{}, false, fmt.Errorf("create conversation: %w", ErrBadResponse)
	}
	return conv, existing, nil
}

func (c *HTTPClient) GetConversation(ctx context.Context, id string) (models.Conversation, []models.RawRecord, error) {
	var out models.RawRecord
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil, &out); err != nil {
		return models.Conversation{}, nil, err
	}
	if inner, ok := out.Record("conversation"); ok {
		msgs := conversationMessages(inner)
		if msgs == nil {
			msgs = conversationMessages(out)
		}
		return ConversationFromRaw(inner), msgs, nil
	}
	return ConversationFromRaw(out), conversationMessages(out), nil
}

func (c *HTTPClient) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/conversations/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) PostMessage(ctx context.Context, conversationID string, req PostMessageRequest) (models.RawRecord, error) {
	var out models.RawRecord
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	if inner, ok := out.Record("message"); ok {
		return inner, nil
	}
	return out, nil
}

func (c *HTTPClient) ChatAI(ctx context.Context, req AIChatRequest) (AIChatResponse, error) {
	var out models.RawRecord
	if err := c.do(ctx, http.MethodPost, "/ai/chat", req, &out); err != nil {
		return AIChatResponse{}, err
	}
	resp := aiResponse(out)
	if resp.Reply == nil {
		return AIChatResponse{}, fmt.Errorf("ai chat: %w", ErrBadResponse)
	}
	return resp, nil
}

func (c *HTTPClient) DeleteMessage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(id), nil, nil)
}

// UploadFile posts r as the multipart field "file".
func (c *HTTPClient) UploadFile(ctx context.Context, name, contentType string, r io.Reader) (models.UploadedFile, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return models.UploadedFile{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return models.UploadedFile{}, fmt.Errorf("read attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return models.UploadedFile{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/files", &body)
	if err != nil {
		return models.UploadedFile{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out models.UploadedFile
	if err := c.send(req, &out); err != nil {
		return models.UploadedFile{}, err
	}
	if out.URL == "" {
		return models.UploadedFile{}, fmt.Errorf("upload: %w", ErrBadResponse)
	}
	if out.Name == "" {
		out.Name = name
	}
	if out.Type == "" {
		out.Type = contentType
	}
	return out, nil
}

func (c *HTTPClient) ListDoctors(ctx context.Context) ([]models.RawRecord, error) {
	return c.getList(ctx, "/doctors", "doctors")
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// getList accepts both a bare JSON array and an object wrapping the array
// under key.
func (c *HTTPClient) getList(ctx context.Context, path, key string) ([]models.RawRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	var list []models.RawRecord
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped models.RawRecord
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrBadResponse)
	}
	return wrapped.Records(key), nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.mu.RLock()
	for k, v := range c.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	c.mu.RUnlock()
	return req, nil
}

func (c *HTTPClient) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportError(req.Context(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapStatus(req.URL.Path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

// mapTransportError classifies failures that happened before a status line
// was read.
func mapTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// mapStatus turns a non-2xx response into an *APIError. The body's code
// takes precedence over the status.
func mapStatus(path string, resp *http.Response) error {
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &eb)

	msg := firstNonEmpty(eb.Message, eb.Error, eb.Detail)
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	apiErr := &APIError{Status: resp.StatusCode, Code: eb.Code, Message: msg}

	isAI := strings.HasSuffix(path, "/ai/chat")
	switch {
	case eb.Code == common.CodeFileTooLarge:
		apiErr.kind = ErrFileTooLarge
	case eb.Code == common.CodeAIOverloaded:
		apiErr.kind = ErrAIOverloaded
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		apiErr.kind = ErrFileTooLarge
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		apiErr.kind = ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		apiErr.kind = ErrNotFound
	case resp.StatusCode == 529, isAI && (resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests):
		apiErr.kind = ErrAIOverloaded
	case resp.StatusCode == http.StatusGatewayTimeout:
		apiErr.kind = ErrTimeout
	case resp.StatusCode == http.StatusBadGateway, resp.StatusCode == http.StatusServiceUnavailable:
		apiErr.kind = ErrUnavailable
	default:
		apiErr.kind = ErrRejected
	}
	return apiErr
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
