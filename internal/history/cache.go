// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps the client's copy of the conversation.
//
// The cache holds a single entry: the ordered message list. Every
// invalidation bumps a generation counter and starts a refetch; a refetch
// result is applied only if no newer invalidation happened while it was in
// flight, so the last invalidation always wins.
package history

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jeranaias/streamchat/internal/model"
)

// DefaultFetchTimeout bounds a single list request.
const DefaultFetchTimeout = 15 * time.Second

// Source is the server side of the cache. *api.Client implements it.
type Source interface {
	ListMessages(ctx context.Context) ([]model.Message, error)
	ClearMessages(ctx context.Context) error
}

// Options configures a Cache.
type Options struct {
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

// Cache is a read-through cache of the conversation. Safe for concurrent use.
type Cache struct {
	src          Source
	logger       *slog.Logger
	fetchTimeout time.Duration

	group singleflight.Group
	wg    sync.WaitGroup

	mu        sync.Mutex
	msgs      []model.Message
	fresh     bool
	gen       uint64
	listeners []func([]model.Message)
}

// New creates an empty, stale cache.
func New(src Source, opts Options) *Cache {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Cache{
		src:          src,
		logger:       opts.Logger,
		fetchTimeout: opts.FetchTimeout,
		msgs:         []model.Message{},
	}
}

// Read returns the cached messages, fetching them first if the cache is
// stale. Concurrent reads of the same generation share one request.
func (c *Cache) Read(ctx context.Context) ([]model.Message, error) {
	c.mu.Lock()
	if c.fresh {
		msgs := slices.Clone(c.msgs)
		c.mu.Unlock()
		return msgs, nil
	}
	gen := c.gen
	c.mu.Unlock()

	ch := c.group.DoChan(key(gen), func() (any, error) {
		return c.fetch(gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]model.Message)), nil
	}
}

// Invalidate marks the cache stale and refetches in the background.
// The previous value stays visible through Snapshot until the refetch lands.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.fresh = false
	gen := c.gen
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, err, _ := c.group.Do(key(gen), func() (any, error) {
			return c.fetch(gen)
		})
		if err != nil {
			c.logger.Warn("HISTORY_REFETCH_FAILED", "generation", gen, "error", err)
		}
	}()
}

// OptimisticAppend adds msg to the cached list immediately. The next
// refetch replaces it with the server's copy.
func (c *Cache) OptimisticAppend(msg model.Message) {
	c.mu.Lock()
	c.msgs = append(slices.Clone(c.msgs), msg)
	snapshot, listeners := c.notifyLocked()
	c.mu.Unlock()

	notify(listeners, snapshot)
}

// Clear empties the cache, then asks the server to delete every message.
// On failure the cache is invalidated so it resyncs with the server.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.gen++ // discard refetches already in flight
	c.msgs = []model.Message{}
	c.fresh = true
	snapshot, listeners := c.notifyLocked()
	c.mu.Unlock()

	notify(listeners, snapshot)

	if err := c.src.ClearMessages(ctx); err != nil {
		c.logger.Warn("HISTORY_CLEAR_FAILED", "error", err)
		c.Invalidate()
		return err
	}
	return nil
}

// Snapshot returns the cached messages without fetching.
func (c *Cache) Snapshot() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.msgs)
}

// Stale reports whether the next Read will fetch.
func (c *Cache) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.fresh
}

// Generation returns the current invalidation count.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// OnChange registers fn to be called with a copy of the list whenever the
// cached value changes. fn must not call back into the cache synchronously.
func (c *Cache) OnChange(fn func([]model.Message)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Wait blocks until all background refetches have finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// fetch lists messages for generation gen and applies the result if gen is
// still current. It is detached from any caller's context so one cancelled
// reader cannot fail the others sharing the request.
func (c *Cache) fetch(gen uint64) ([]model.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	msgs, err := c.src.ListMessages(ctx)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("HISTORY_REFETCH_SUPERSEDED", "generation", gen)
		return msgs, nil
	}
	c.msgs = msgs
	c.fresh = true
	snapshot, listeners := c.notifyLocked()
	c.mu.Unlock()

	notify(listeners, snapshot)
	return msgs, nil
}

func (c *Cache) notifyLocked() ([]model.Message, []func([]model.Message)) {
	if len(c.listeners) == 0 {
		return nil, nil
	}
	return slices.Clone(c.msgs), slices.Clone(c.listeners)
}

func notify(listeners []func([]model.Message), msgs []model.Message) {
	for _, fn := range listeners {
		fn(slices.Clone(msgs))
	}
}

func key(gen uint64) string {
	return "messages:" + strconv.FormatUint(gen, 10)
}
