// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/model"
)

// fakeSource serves a settable message list. When gate is set, the Nth
// list call (1-based) blocks until the channel is closed.
type fakeSource struct {
	mu       sync.Mutex
	msgs     []model.Message
	listErr  error
	clearErr error

	calls   atomic.Int32
	clears  atomic.Int32
	gateOn  int32
	gate    chan struct{}
	started chan int32
}

func (f *fakeSource) set(msgs ...model.Message) {
	f.mu.Lock()
	f.msgs = msgs
	f.mu.Unlock()
}

func (f *fakeSource) ListMessages(ctx context.Context) ([]model.Message, error) {
	n := f.calls.Add(1)

	f.mu.Lock()
	msgs, err := append([]model.Message(nil), f.msgs...), f.listErr
	f.mu.Unlock()

	if f.started != nil {
		f.started <- n
	}
	if f.gate != nil && (f.gateOn == 0 || n == f.gateOn) {
		<-f.gate
	}
	return msgs, err
}

func (f *fakeSource) ClearMessages(ctx context.Context) error {
	f.clears.Add(1)
	if f.clearErr != nil {
		return f.clearErr
	}
	f.set()
	return nil
}

func msg(id int64, role model.Role, content string) model.Message {
	return model.Message{ID: id, Role: role, Content: content, CreatedAt: time.Unix(id, 0).UTC()}
}

func TestRead_FetchesOnceThenServesCache(t *testing.T) {
	src := &fakeSource{}
	src.set(msg(1, model.RoleUser, "hi"))
	c := New(src, Options{})

	assert.True(t, c.Stale())

	got, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Message{msg(1, model.RoleUser, "hi")}, got)

	_, err = c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.False(t, c.Stale())
}

func TestRead_EmptyIsNonNil(t *testing.T) {
	c := New(&fakeSource{}, Options{})

	got, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRead_CoalescesConcurrentFetches(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{}), started: make(chan int32, 8)}
	src.set(msg(1, model.RoleUser, "hi"))
	c := New(src, Options{})

	var wg sync.WaitGroup
	results := make([][]model.Message, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msgs, err := c.Read(context.Background())
			assert.NoError(t, err)
			results[i] = msgs
		}(i)
	}

	<-src.started
	// Give the remaining readers time to join the in-flight request.
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, r := range results {
		assert.Len(t, r, 1)
	}
}

func TestRead_Error(t *testing.T) {
	src := &fakeSource{listErr: errors.New("offline")}
	c := New(src, Options{})

	_, err := c.Read(context.Background())
	require.EqualError(t, err, "offline")
	assert.True(t, c.Stale())

	// The next read tries again.
	src.mu.Lock()
	src.listErr = nil
	src.mu.Unlock()
	_, err = c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestRead_CallerCancelDoesNotFailSharedFetch(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{}), started: make(chan int32, 8)}
	src.set(msg(1, model.RoleUser, "hi"))
	c := New(src, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Read(ctx)
		done <- err
	}()

	<-src.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(src.gate)
	got, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestInvalidate_RefetchesInBackground(t *testing.T) {
	src := &fakeSource{}
	src.set(msg(1, model.RoleUser, "hi"))
	c := New(src, Options{})
	_, err := c.Read(context.Background())
	require.NoError(t, err)

	src.set(msg(1, model.RoleUser, "hi"), msg(2, model.RoleAssistant, "hello"))
	c.Invalidate()
	c.Wait()

	assert.Len(t, c.Snapshot(), 2)
	assert.False(t, c.Stale())
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestInvalidate_LastInvalidationWins(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{}), gateOn: 1, started: make(chan int32, 8)}
	c := New(src, Options{})

	src.set(msg(1, model.RoleUser, "old"))
	c.Invalidate()
	require.Equal(t, int32(1), <-src.started)

	src.set(msg(1, model.RoleUser, "old"), msg(2, model.RoleAssistant, "new"))
	c.Invalidate()
	require.Equal(t, int32(2), <-src.started)

	// Let the older, slower fetch finish last.
	require.Eventually(t, func() bool { return len(c.Snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	close(src.gate)
	c.Wait()

	got := c.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[1].Content)
	assert.Equal(t, uint64(2), c.Generation())
}

func TestOptimisticAppend(t *testing.T) {
	src := &fakeSource{}
	src.set(msg(1, model.RoleUser, "hi"))
	c := New(src, Options{})
	_, err := c.Read(context.Background())
	require.NoError(t, err)

	var seen [][]model.Message
	c.OnChange(func(msgs []model.Message) { seen = append(seen, msgs) })

	pending := model.NewTransientMessage(model.RoleUser, "again")
	c.OptimisticAppend(pending)

	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.True(t, snap[1].Transient())
	require.Len(t, seen, 1)
	assert.Len(t, seen[0], 2)

	// Reading serves the optimistic list without fetching.
	got, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestSnapshot_IsACopy(t *testing.T) {
	c := New(&fakeSource{}, Options{})
	c.OptimisticAppend(msg(1, model.RoleUser, "hi"))

	snap := c.Snapshot()
	snap[0].Content = "mutated"

	assert.Equal(t, "hi", c.Snapshot()[0].Content)
}

func TestClear(t *testing.T) {
	src := &fakeSource{}
	src.set(msg(1, model.RoleUser, "hi"))
	c := New(src, Options{})
	_, err := c.Read(context.Background())
	require.NoError(t, err)

	var last []model.Message
	c.OnChange(func(msgs []model.Message) { last = msgs })

	require.NoError(t, c.Clear(context.Background()))

	assert.Empty(t, c.Snapshot())
	assert.NotNil(t, last)
	assert.Empty(t, last)
	assert.Equal(t, int32(1), src.clears.Load())
	assert.False(t, c.Stale())
}

func TestClear_FailureResyncs(t *testing.T) {
	src := &fakeSource{clearErr: errors.New("500")}
	src.set(msg(1, model.RoleUser, "hi"))
	c := New(src, Options{})
	_, err := c.Read(context.Background())
	require.NoError(t, err)

	err = c.Clear(context.Background())
	require.EqualError(t, err, "500")

	c.Wait()
	assert.Len(t, c.Snapshot(), 1, "server still has the message")
}

func TestClear_DiscardsInFlightRefetch(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{}), started: make(chan int32, 8)}
	src.set(msg(1, model.RoleUser, "hi"))
	c := New(src, Options{})

	c.Invalidate()
	<-src.started

	require.NoError(t, c.Clear(context.Background()))
	close(src.gate)
	c.Wait()

	assert.Empty(t, c.Snapshot())
}
