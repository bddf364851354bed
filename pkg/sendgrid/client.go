package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.sendgrid.com"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 2048
)

var errAPIKeyRequired = errors.New("sendgrid api key is required")

// Client sends transactional email through the SendGrid v3 API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

func NewClient(apiKey, from string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	client := &Client{
		apiKey:  apiKey,
		from:    strings.TrimSpace(from),
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Mail is a single-recipient message.
type Mail struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendRequest struct {
	Personalizations []struct {
		To []address `json:"to"`
	} `json:"personalizations"`
	From    address   `json:"from"`
	Subject string    `json:"subject"`
	Content []content `json:"content"`
}

// Send delivers the mail. SendGrid answers 202 on acceptance.
func (c *Client) Send(ctx context.Context, mail Mail) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "sendgrid client not configured")
	}
	if strings.TrimSpace(mail.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}
	if mail.Text == "" && mail.HTML == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "mail body is required")
	}

	payload, err := json.Marshal(c.buildRequest(mail))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal sendgrid request")
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/v3/mail/send"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build sendgrid request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute sendgrid request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "sendgrid request failed")
	}
	return nil
}

func (c *Client) buildRequest(mail Mail) sendRequest {
	req := sendRequest{
		From:    address{Email: c.from, Name: "Roomezes"},
		Subject: mail.Subject,
	}
	req.Personalizations = make([]struct {
		To []address `json:"to"`
	}, 1)
	req.Personalizations[0].To = []address{{Email: strings.TrimSpace(mail.To), Name: mail.ToName}}
	if mail.Text != "" {
		req.Content = append(req.Content, content{Type: "text/plain", Value: mail.Text})
	}
	if mail.HTML != "" {
		req.Content = append(req.Content, content{Type: "text/html", Value: mail.HTML})
	}
	return req
}
