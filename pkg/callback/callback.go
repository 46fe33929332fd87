package callback

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const signatureHeader = "X-Intake-Signature"

type Config struct {
	URL        string        `split_words:"true" required:"true"`
	Token      string        `split_words:"true"`
	SigningKey string        `split_words:"true"`
	Timeout    time.Duration `split_words:"true" default:"10s"`
	MaxRetries int           `split_words:"true" default:"3"`
	RetryDelay time.Duration `split_words:"true" default:"500ms"`
}

// Publisher delivers job-completion callbacks over HTTP with bounded retries.
// Payloads are signed with HMAC-SHA256 when a signing key is configured.
type Publisher struct {
	url        string
	token      string
	signingKey string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

func NewPublisher(cfg Config) (*Publisher, error) {
	target := strings.TrimSpace(cfg.URL)
	if target == "" {
		return nil, errors.New("callback url is required")
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		return nil, fmt.Errorf("invalid callback url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}

	return &Publisher{
		url:        strings.TrimRight(target, "/"),
		token:      strings.TrimSpace(cfg.Token),
		signingKey: strings.TrimSpace(cfg.SigningKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

func MustNew(cfg Config) *Publisher {
	p, err := NewPublisher(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Publish POSTs the payload as JSON. Transport errors and 5xx responses are
// retried up to MaxRetries times; 4xx responses are not retried.
func (p *Publisher) Publish(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.retryDelay):
			}
		}

		retryable, err := p.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return fmt.Errorf("callback delivery failed after %d attempts: %w", p.maxRetries+1, lastErr)
}

func (p *Publisher) post(ctx context.Context, body []byte) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	if p.signingKey != "" {
		req.Header.Set(signatureHeader, p.sign(body))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("execute callback request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return false, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return true, fmt.Errorf("callback http status=%d", resp.StatusCode)
	default:
		return false, fmt.Errorf("callback http status=%d", resp.StatusCode)
	}
}

func (p *Publisher) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(p.signingKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
