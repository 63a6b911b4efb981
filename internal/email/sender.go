package email

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"suki-be/internal/logger"

	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one message and returns the provider's message id.
type Sender interface {
	IsConfigured() bool
	Send(ctx context.Context, msg Message) (string, error)
}

type SenderOptions struct {
	APIURL  string
	APIKey  string
	From    string
	Timeout time.Duration
}

type httpSender struct {
	opts SenderOptions
	http *http.Client
}

func NewSender(opts SenderOptions) Sender {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	if opts.APIURL == "" || opts.APIKey == "" {
		logger.L().Warn("email provider not configured, sending disabled")
	}
	return &httpSender{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
	}
}

func (s *httpSender) IsConfigured() bool {
	return s.opts.APIURL != "" && s.opts.APIKey != "" && s.opts.From != ""
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (s *httpSender) Send(ctx context.Context, msg Message) (string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("component", "EmailSender"),
		zap.String("to", msg.To),
	)

	if !s.IsConfigured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(sendRequest{
		From:    s.opts.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.Body,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.APIURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		log.Warn("email request failed", zap.Error(err))
		return "", &SendError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var out sendResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode >= 300 {
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		log.Warn("email rejected by provider", zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return "", &SendError{StatusCode: resp.StatusCode, Message: msg}
	}

	log.Debug("email accepted", zap.String("provider_id", out.ID))
	return out.ID, nil
}
