package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/georgemunganga/tillcore/internal/notify"
	"github.com/georgemunganga/tillcore/internal/secrets"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGenerateSecretKey(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"generate-secret-key"})
	require.NoError(t, cmd.Execute())

	key := strings.TrimSpace(buf.String())
	require.NotEmpty(t, key)
	_, err := secrets.NewStore(nil, "test", key)
	assert.NoError(t, err)
}

func TestPasswd_RejectsBadID(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"passwd", "bob"})
	cmd.SetIn(strings.NewReader("secret\n"))
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user id")
}

func TestReadLine(t *testing.T) {
	v, err := readLine(strings.NewReader("hunter2\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)

	v, err = readLine(strings.NewReader("no newline"))
	require.NoError(t, err)
	assert.Equal(t, "no newline", v)

	_, err = readLine(strings.NewReader(""))
	assert.Error(t, err)
}

type fakeSource struct {
	ch chan *pq.Notification
}

func (f *fakeSource) Listen(string) error                           { return nil }
func (f *fakeSource) NotificationChannel() <-chan *pq.Notification { return f.ch }
func (f *fakeSource) Close() error                                  { return nil }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMonitor(t *testing.T) {
	src := &fakeSource{ch: make(chan *pq.Notification, 4)}
	d := notify.NewDispatcher(src, zap.NewNop())
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor(ctx, d, []string{notify.ChannelStockLine}, out) }()

	src.ch <- &pq.Notification{Channel: notify.ChannelStockLine, Extra: "7"}
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "stockline_change 7\n")
	}, time.Second, 10*time.Millisecond)

	src.ch <- nil
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "stockline_change (reconnected)\n")
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
