package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.telegram.org"

type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, options ...MessageOption) error
}

type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
	logger     *zap.Logger
}

type ClientOption func(*Client)

// WithBaseURL подменяет адрес Bot API (для тестов и прокси).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

func NewClient(botToken string, logger *zap.Logger, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		botToken:   botToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type sendMessageRequest struct {
	ChatID              int64  `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

type MessageOption func(*sendMessageRequest)

func WithHTML() MessageOption {
	return func(req *sendMessageRequest) { req.ParseMode = "HTML" }
}

func WithSilent() MessageOption {
	return func(req *sendMessageRequest) { req.DisableNotification = true }
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, options ...MessageOption) error {
	req := sendMessageRequest{ChatID: chatID, Text: text}
	for _, opt := range options {
		opt(&req)
	}
	return c.call(ctx, "sendMessage", req)
}

func (c *Client) call(ctx context.Context, methodName string, payload interface{}) error {
	if c.botToken == "" {
		return fmt.Errorf("токен Telegram-бота не установлен")
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации JSON: %w", err)
	}

	apiURL := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, methodName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки запроса в Telegram: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	c.logger.Debug("Telegram API", zap.String("method", methodName), zap.Int("status", resp.StatusCode))

	// Bot API отдаёт признак ошибки в теле, код ответа не всегда информативен.
	var telegramResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
		ErrorCode   int    `json:"error_code,omitempty"`
	}
	if err := json.Unmarshal(body, &telegramResp); err != nil {
		return fmt.Errorf("ошибка декодирования ответа Telegram API: %w", err)
	}
	if !telegramResp.OK {
		return fmt.Errorf("telegram API ошибка (%s): код %d, описание: %s", methodName, telegramResp.ErrorCode, telegramResp.Description)
	}
	return nil
}
