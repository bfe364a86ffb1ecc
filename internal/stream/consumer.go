// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream drives one chat exchange on the client: it posts the
// message, decodes the streamed reply as it arrives and reconciles the
// history cache when the exchange ends.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jeranaias/streamchat/internal/api"
	"github.com/jeranaias/streamchat/internal/model"
)

// =============================================================================
// ERRORS AND NOTIFICATIONS
// =============================================================================

var (
	// ErrStopped is the cancellation cause used by Stop.
	ErrStopped = errors.New("stopped by user")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// errSuperseded cancels an exchange replaced by a newer Send.
	errSuperseded = errors.New("superseded by a newer message")
)

const (
	// NotificationTitle is the title of every failure notification.
	NotificationTitle = "Error"

	// ReceiveFailedMessage is shown when the reply could not be received
	// and the server sent no structured detail.
	ReceiveFailedMessage = "Failed to receive response from AI."

	defaultBufferSize = 4096
)

// Notification is a user-visible failure report.
type Notification struct {
	Title       string
	Description string
	Err         error
}

// State is the live exchange state the UI renders.
type State struct {
	IsStreaming    bool
	PartialContent string
}

// =============================================================================
// DEPENDENCIES
// =============================================================================

// ChatOpener starts a chat exchange. *api.Client implements it.
type ChatOpener interface {
	OpenChat(ctx context.Context, message string) (io.ReadCloser, error)
}

// Cache is the part of the history cache the consumer updates.
// *history.Cache implements it.
type Cache interface {
	OptimisticAppend(msg model.Message)
	Invalidate()
}

// Options configures a Consumer.
type Options struct {
	// OnState is called after every state change, including each chunk.
	OnState func(State)

	// OnNotify is called for failures. Never called for Stop.
	OnNotify func(Notification)

	// BufferSize is the read size per chunk (default 4096).
	BufferSize int

	Logger *slog.Logger
}

// =============================================================================
// CONSUMER
// =============================================================================

// Consumer runs chat exchanges one at a time. Send blocks for the whole
// exchange; Stop may be called from any goroutine.
type Consumer struct {
	chat  ChatOpener
	cache Cache
	opts  Options

	mu      sync.Mutex
	state   State
	partial strings.Builder
	gen     uint64
	cancel  context.CancelCauseFunc
}

// New creates a Consumer.
func New(chat ChatOpener, cache Cache, opts Options) *Consumer {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Consumer{chat: chat, cache: cache, opts: opts}
}

// State returns the current exchange state.
func (c *Consumer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send posts content and streams the reply into State until the exchange
// ends. It returns nil on success or cancellation.
//
// A Send while another exchange is in flight cancels the older one.
func (c *Consumer) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	exCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// The exchange is cancellable before any listener runs, so a Stop
	// issued from an OptimisticAppend or OnState callback is never lost.
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel(errSuperseded)
	}
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.partial.Reset()
	c.state = State{IsStreaming: true}
	snapshot := c.state
	c.mu.Unlock()

	start := time.Now()
	c.publish(snapshot)
	c.cache.OptimisticAppend(model.NewTransientMessage(model.RoleUser, content))

	if exCtx.Err() != nil {
		return c.finish(ctx, exCtx, gen, context.Cause(exCtx), false, start)
	}
	body, err := c.chat.OpenChat(exCtx, content)
	if err != nil {
		return c.finish(ctx, exCtx, gen, err, false, start)
	}
	defer body.Close()
	if exCtx.Err() != nil {
		return c.finish(ctx, exCtx, gen, context.Cause(exCtx), true, start)
	}

	// The decoder holds back an incomplete trailing sequence until the
	// next chunk completes it.
	r := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, c.opts.BufferSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			c.appendPartial(gen, string(buf[:n]))
		}
		if errors.Is(rerr, io.EOF) {
			return c.finish(ctx, exCtx, gen, nil, true, start)
		}
		if rerr != nil {
			return c.finish(ctx, exCtx, gen, rerr, true, start)
		}
	}
}

// Stop cancels the in-flight exchange, clears the live state and
// invalidates the cache. It is a no-op when nothing is streaming.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.cancel(ErrStopped)
	c.cancel = nil
	c.partial.Reset()
	c.state = State{}
	snapshot := c.state
	c.mu.Unlock()

	c.opts.Logger.Debug("STREAM_STOPPED")
	c.publish(snapshot)
	c.cache.Invalidate()
}

// appendPartial adds decoded text to the live buffer of exchange gen.
func (c *Consumer) appendPartial(gen uint64, text string) {
	c.mu.Lock()
	if gen != c.gen || !c.state.IsStreaming {
		c.mu.Unlock()
		return
	}
	c.partial.WriteString(text)
	c.state.PartialContent = c.partial.String()
	snapshot := c.state
	c.mu.Unlock()

	c.publish(snapshot)
}

// finish ends exchange gen. err is nil for a clean end of body.
func (c *Consumer) finish(parent, exCtx context.Context, gen uint64, err error, opened bool, start time.Time) error {
	cause := context.Cause(exCtx)
	logger := c.opts.Logger.With("generation", gen, "duration", time.Since(start))

	switch {
	case err != nil && (errors.Is(cause, ErrStopped) || errors.Is(cause, errSuperseded)):
		// Stop or the newer Send already reset the state.
		logger.Debug("STREAM_CANCELLED", "cause", cause)
		return nil

	case err != nil && parent.Err() != nil:
		// The caller gave up, e.g. on shutdown.
		logger.Debug("STREAM_ABANDONED", "error", err)
		c.reset(gen)
		c.cache.Invalidate()
		return nil
	}

	if err == nil {
		logger.Debug("STREAM_DONE", "bytes", len(c.State().PartialContent))
		c.cache.Invalidate()
		c.reset(gen)
		return nil
	}

	logger.Warn("STREAM_FAILED", "error", err, "opened", opened)
	c.cache.Invalidate()
	c.reset(gen)
	c.notify(Notification{
		Title:       NotificationTitle,
		Description: describe(err, opened),
		Err:         err,
	})
	return err
}

// reset clears the live state if gen is still the current exchange.
func (c *Consumer) reset(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	c.partial.Reset()
	c.state = State{}
	snapshot := c.state
	c.mu.Unlock()

	c.publish(snapshot)
}

func (c *Consumer) publish(s State) {
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}

func (c *Consumer) notify(n Notification) {
	if c.opts.OnNotify != nil {
		c.opts.OnNotify(n)
	}
}

// describe picks the notification text. Only a failure before the reply
// started can carry the server's message.
func describe(err error, opened bool) string {
	var serr *api.StatusError
	if !opened && errors.As(err, &serr) && serr.Message != "" {
		return serr.Message
	}
	return ReceiveFailedMessage
}
