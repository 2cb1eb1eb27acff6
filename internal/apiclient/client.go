package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"backend-stizi/internal/collect"
	"backend-stizi/internal/logging"
)

const defaultTimeout = 10 * time.Second

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the Stizi REST API.
type Client struct {
	baseURL string
	tokens  TokenStore
	timeout time.Duration
	logger  *slog.Logger
}

func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	if tokens == nil {
		tokens = NewMemoryTokenStore("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		timeout: defaultTimeout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Message string `json:"message"`
}

type response struct {
	status int
	body   []byte
	errs   []error
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if err := ctx.Err(); err != nil {
		return &collect.RemoteError{Kind: collect.KindNetwork, Err: err}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var agent *fiber.Agent
	switch method {
	case fiber.MethodPost:
		agent = fiber.Post(target)
	default:
		agent = fiber.Get(target)
	}
	agent.Timeout(c.timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if in != nil {
		agent.JSON(in)
	}

	respCh := make(chan response, 1)
	go func() {
		status, body, errs := agent.Bytes()
		respCh <- response{status: status, body: body, errs: errs}
	}()

	var resp response
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		return &collect.RemoteError{Kind: collect.KindNetwork, Err: ctx.Err()}
	}

	if len(resp.errs) > 0 {
		c.logger.Warn("api request failed", slog.String("path", path), slog.Any("error", resp.errs[0]))
		return &collect.RemoteError{Kind: collect.KindNetwork, Err: errors.Join(resp.errs...)}
	}

	if resp.status >= 200 && resp.status < 300 {
		if out == nil || len(resp.body) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.body, out); err != nil {
			return &collect.RemoteError{Kind: collect.KindServer, Status: resp.status, Message: "invalid response", Err: err}
		}
		return nil
	}

	var eb errorBody
	_ = json.Unmarshal(resp.body, &eb)
	remoteErr := &collect.RemoteError{Kind: kindForStatus(resp.status), Status: resp.status, Message: eb.Message}
	if remoteErr.Kind == collect.KindUnauthenticated {
		if err := c.tokens.Clear(ctx); err != nil {
			c.logger.Warn("clear token failed", slog.Any("error", err))
		}
	}
	c.logger.Debug("api request rejected",
		slog.String("path", path),
		slog.Int("status", resp.status),
		slog.String("message", eb.Message),
	)
	return remoteErr
}

func kindForStatus(status int) collect.Kind {
	switch {
	case status == http.StatusUnauthorized:
		return collect.KindUnauthenticated
	case status == http.StatusNotFound:
		return collect.KindInvalidCode
	case status == http.StatusConflict:
		return collect.KindAlreadyCollected
	default:
		return collect.KindServer
	}
}
