// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"errors"
	"time"
)

// idleProvider fails a stream that goes quiet for longer than timeout.
type idleProvider struct {
	Provider
	timeout time.Duration
}

// WithIdleTimeout wraps p so that StreamChat is cancelled with cause
// ErrIdleTimeout when no fragment arrives within d. The timer restarts on
// every fragment. A non-positive d returns p unchanged.
func WithIdleTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &idleProvider{Provider: p, timeout: d}
}

// Unwrap returns the wrapped provider.
func (p *idleProvider) Unwrap() Provider {
	return p.Provider
}

// Ping forwards to the wrapped provider when it supports it.
func (p *idleProvider) Ping(ctx context.Context) error {
	if pinger, ok := p.Provider.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func (p *idleProvider) StreamChat(ctx context.Context, messages []Message, onFragment FragmentFunc) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	timer := time.AfterFunc(p.timeout, func() { cancel(ErrIdleTimeout) })
	defer timer.Stop()

	err := p.Provider.StreamChat(ctx, messages, func(fragment string) error {
		timer.Reset(p.timeout)
		return onFragment(fragment)
	})

	if err != nil && errors.Is(context.Cause(ctx), ErrIdleTimeout) {
		return &ProviderError{
			Provider: p.Name(),
			Type:     ErrTypeTimeout,
			Message:  "no output for " + p.timeout.String(),
			Cause:    ErrIdleTimeout,
		}
	}
	return err
}
