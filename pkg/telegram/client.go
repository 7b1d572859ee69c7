package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxMessageLength is the Bot API limit for one message's text.
const MaxMessageLength = 4096

// ClientConfig represents the configuration for the Bot API client.
type ClientConfig struct {
	Token   string
	APIURL  string        // Default: https://api.telegram.org
	Timeout time.Duration // Default: 90 seconds, must exceed the poll timeout
}

// Client is a Telegram Bot API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a new Bot API client.
func NewClient(config ClientConfig) *Client {
	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: apiURL,
		token:   config.Token,
	}
}

// GetUpdates long-polls for updates after the given offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	payload := map[string]interface{}{
		"offset":          offset,
		"timeout":         timeoutSeconds,
		"allowed_updates": []string{"message", "callback_query"},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to a chat, splitting it into multiple messages
// when it exceeds the Bot API length limit. The reply markup rides on the
// first chunk; the returned message is that first chunk, so its ID can be
// stored for later keyboard edits.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (*Message, error) {
	chunks := ChunkText(text, MaxMessageLength)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("refusing to send empty message")
	}

	var first *Message
	for i, chunk := range chunks {
		payload := map[string]interface{}{
			"chat_id": chatID,
			"text":    chunk,
		}
		if i == 0 && markup != nil {
			payload["reply_markup"] = markup
		}

		var message Message
		if err := c.call(ctx, "sendMessage", payload, &message); err != nil {
			return first, fmt.Errorf("failed to send message chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if i == 0 {
			first = &message
		}
	}
	return first, nil
}

// EditMessageText replaces the text (and optionally the keyboard) of a
// previously sent message. Oversized text is truncated rather than split,
// since an edit cannot grow into multiple messages.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	chunks := ChunkText(text, MaxMessageLength)
	if len(chunks) == 0 {
		return fmt.Errorf("refusing to edit to empty message")
	}

	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       chunks[0],
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// EditMessageReplyMarkup replaces the inline keyboard of a message. A nil
// markup removes the keyboard.
func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *InlineKeyboardMarkup) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	} else {
		payload["reply_markup"] = InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{}}
	}
	return c.call(ctx, "editMessageReplyMarkup", payload, nil)
}

// AnswerCallbackQuery acknowledges a button tap, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	payload := map[string]interface{}{
		"callback_query_id": callbackQueryID,
	}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// SetMyCommands publishes the command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	payload := map[string]interface{}{
		"commands": commands,
	}
	return c.call(ctx, "setMyCommands", payload, nil)
}

// GetFile resolves a file ID to its download path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	payload := map[string]interface{}{
		"file_id": fileID,
	}

	var file File
	if err := c.call(ctx, "getFile", payload, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// DownloadFile fetches the content of a file previously resolved with
// GetFile.
func (c *Client) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	downloadURL := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)

	req, err := http.NewRequestWithContext(ctx, "GET", downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram file download failed (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	return data, nil
}

// call posts one Bot API method and decodes its result envelope.
func (c *Client) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !envelope.OK {
		return fmt.Errorf("telegram API error %s (code %d): %s", method, envelope.ErrorCode, envelope.Description)
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}
