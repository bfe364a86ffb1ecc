// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jeranaias/streamchat/internal/llm"
)

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk represents a single chunk from the streaming response.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GetContent returns the content from the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// StreamCallback is the function type called for each received chunk.
type StreamCallback func(chunk StreamChunk) error

// errStreamTruncated means the body ended before [DONE].
var errStreamTruncated = errors.New("stream ended before [DONE]")

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event type, data, and any error.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line ends the event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// id:, retry: and ":" comments are ignored
	}
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream performs a streaming chat completion request.
// The callback is called for each chunk received.
func (c *Client) ChatStream(ctx context.Context, messages []ChatMessage, callback StreamCallback) error {
	if !c.IsConfigured() {
		return newError(llm.ErrTypeAuth, "not configured", ErrNotConfigured)
	}

	bodyBytes, err := json.Marshal(ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return newError(llm.ErrTypeInvalidResponse, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return newError(llm.ErrTypeConnection, "failed to create request", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// Headers and body are never logged; they carry the key and the prompt.
	c.logger.Debug("CLOUD_REQUEST", "path", req.URL.Path, "model", c.model, "key", c.KeyFingerprint())
	start := time.Now()

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return newError(llm.ErrTypeConnection, "request failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("CLOUD_RESPONSE", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.handleErrorResponse(resp.StatusCode, body)
	}

	return c.processStream(ctx, resp.Body, callback)
}

// processStream reads and processes the SSE stream until [DONE].
func (c *Client) processStream(ctx context.Context, body io.Reader, callback StreamCallback) error {
	reader := NewSSEReader(body)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return errStreamTruncated
			}
			return err
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return fmt.Errorf("malformed stream event: %w", err)
		}
		if chunk.Error != nil {
			return errors.New(chunk.Error.Message)
		}

		if err := callback(chunk); err != nil {
			return err
		}
	}
}

// StreamChat implements llm.Provider.
func (c *Client) StreamChat(ctx context.Context, messages []llm.Message, onFragment llm.FragmentFunc) error {
	converted := make([]ChatMessage, len(messages))
	for i, m := range messages {
		converted[i] = ChatMessage{Role: m.Role, Content: m.Content}
	}

	var callbackErr error
	err := c.ChatStream(ctx, converted, func(chunk StreamChunk) error {
		content := chunk.GetContent()
		if content == "" {
			return nil
		}
		if err := onFragment(content); err != nil {
			callbackErr = err
			return err
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case callbackErr != nil && errors.Is(err, callbackErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	if _, ok := llm.IsProviderError(err); ok {
		return err
	}
	return newError(llm.ErrTypeInvalidResponse, "stream failed", err)
}
