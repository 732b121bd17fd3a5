package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/rocketscienceinc/tictactoe-bot/internal/bot"
	"github.com/rocketscienceinc/tictactoe-bot/internal/render"
)

const (
	MethodSendMessage    = "sendMessage"
	MethodEditMessage    = "editMessage"
	MethodAnswerCallback = "answerCallback"
	MethodSetWebhook     = "setWebhook"
	MethodDeleteWebhook  = "deleteWebhook"

	maxErrorBody = 512
)

// APIError is returned when the chat API answers with a non 2xx status or ok=false.
type APIError struct {
	Method      string
	Status      int
	Description string
}

func (that *APIError) Error() string {
	return fmt.Sprintf("chat api error: method=%s status=%d description=%s", that.Method, that.Status, that.Description)
}

type ReplyMarkup struct {
	InlineKeyboard render.Keyboard `json:"inline_keyboard"`
}

type SendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode,omitempty"`
	ReplyMarkup *ReplyMarkup `json:"reply_markup,omitempty"`
}

type EditMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	MessageID   int64        `json:"message_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode,omitempty"`
	ReplyMarkup *ReplyMarkup `json:"reply_markup,omitempty"`
}

type AnswerCallbackRequest struct {
	CallbackID string `json:"callback_query_id"`
	Text       string `json:"text,omitempty"`
	ShowAlert  bool   `json:"show_alert,omitempty"`
}

type SetWebhookRequest struct {
	URL string `json:"url"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Client talks to the chat API over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(that *Client) { that.token = token }
}

func WithTimeout(d time.Duration) Option {
	return func(that *Client) {
		if d > 0 {
			that.defaultTimeout = d
		}
	}
}

func WithRetry(attempts int) Option {
	return func(that *Client) { that.retryMax = attempts }
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// SendMessage is never retried: a lost response would otherwise post the message twice.
func (that *Client) SendMessage(ctx context.Context, req SendMessageRequest) error {
	return that.call(ctx, MethodSendMessage, req, false)
}

func (that *Client) EditMessage(ctx context.Context, req EditMessageRequest) error {
	return that.call(ctx, MethodEditMessage, req, true)
}

func (that *Client) AnswerCallback(ctx context.Context, req AnswerCallbackRequest) error {
	return that.call(ctx, MethodAnswerCallback, req, true)
}

func (that *Client) SetWebhook(ctx context.Context, url string) error {
	return that.call(ctx, MethodSetWebhook, SetWebhookRequest{URL: url}, true)
}

func (that *Client) DeleteWebhook(ctx context.Context) error {
	return that.call(ctx, MethodDeleteWebhook, struct{}{}, true)
}

// Deliver answers the button press, if any, and then sends or edits the message.
func (that *Client) Deliver(ctx context.Context, reply bot.Reply) error {
	var errs []error

	if reply.CallbackID != "" {
		err := that.AnswerCallback(ctx, AnswerCallbackRequest{
			CallbackID: reply.CallbackID,
			Text:       reply.Alert,
			ShowAlert:  reply.ShowAlert,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to answer callback: %w", err))
		}
	}

	if !reply.HasMessage() {
		return errors.Join(errs...)
	}

	var markup *ReplyMarkup
	if len(reply.Keyboard) > 0 {
		markup = &ReplyMarkup{InlineKeyboard: reply.Keyboard}
	}

	var err error
	if reply.EditMessageID != 0 {
		err = that.EditMessage(ctx, EditMessageRequest{
			ChatID:      reply.ChatID,
			MessageID:   reply.EditMessageID,
			Text:        reply.Text,
			ParseMode:   reply.ParseMode,
			ReplyMarkup: markup,
		})
	} else {
		err = that.SendMessage(ctx, SendMessageRequest{
			ChatID:      reply.ChatID,
			Text:        reply.Text,
			ParseMode:   reply.ParseMode,
			ReplyMarkup: markup,
		})
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to deliver message: %w", err))
	}

	return errors.Join(errs...)
}

func (that *Client) call(ctx context.Context, method string, in any, retry bool) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(that.baseURL + "/" + method)
	req.Header.SetContentType("application/json")
	if that.token != "" {
		req.Header.Set("Authorization", "Bearer "+that.token)
	}
	req.SetBody(payload)

	attempts := 1
	if retry && that.retryMax > 1 {
		attempts = that.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		err = that.http.DoDeadline(req, resp, that.deadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			lastErr = checkResponse(method, resp)
			if lastErr == nil {
				return nil
			}

			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && !shouldRetryStatus(apiErr.Status) {
				return lastErr
			}
		}

		if attempt == attempts {
			break
		}

		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}

	return lastErr
}

func checkResponse(method string, resp *fasthttp.Response) error {
	status := resp.StatusCode()
	body := resp.Body()

	var decoded apiResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil && status >= 200 && status < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if status < 200 || status >= 300 {
		description := decoded.Description
		if description == "" {
			description = truncate(string(body), maxErrorBody)
		}
		return &APIError{Method: method, Status: status, Description: description}
	}

	if len(body) > 0 && !decoded.OK {
		return &APIError{Method: method, Status: status, Description: decoded.Description}
	}

	return nil
}

func (that *Client) deadline(ctx context.Context) time.Time {
	clientDeadline := time.Now().Add(that.defaultTimeout)
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(clientDeadline) {
		return deadline
	}

	return clientDeadline
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDuration doubles from 100ms and stops growing after the sixth attempt.
func backoffDuration(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)

	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
