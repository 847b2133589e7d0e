package threadpool

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/send"
	"github.com/stretchr/testify/require"
)

// recordingSender keeps every message it receives. Unlike send.MockSender it
// is safe for the concurrent use workers make of it.
type recordingSender struct {
	*send.Base

	mu   sync.Mutex
	msgs []message.Composer
}

func newRecordingSender(t *testing.T) *recordingSender {
	t.Helper()
	s := &recordingSender{Base: send.NewBase("threadpool-test")}
	require.NoError(t, s.SetLevel(send.LevelInfo{Default: level.Info, Threshold: level.Debug}))
	return s
}

func (s *recordingSender) Send(m message.Composer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
}

func (s *recordingSender) Flush(context.Context) error { return nil }

// rendered returns the string form of every recorded message containing substr.
func (s *recordingSender) rendered(substr string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.msgs {
		if r := m.String(); strings.Contains(r, substr) {
			out = append(out, r)
		}
	}
	return out
}

func newTestLogger(t *testing.T) (*recordingSender, grip.Journaler) {
	t.Helper()
	s := newRecordingSender(t)
	return s, logging.MakeGrip(s)
}

// newStderrLogger returns a journaler writing warnings and above to standard error.
func newStderrLogger(tb testing.TB) grip.Journaler {
	tb.Helper()
	s, err := send.NewErrorLogger("threadpool-test", send.LevelInfo{Default: level.Info, Threshold: level.Warning})
	require.NoError(tb, err)
	return logging.MakeGrip(s)
}

// newTestPool builds a pool logging into a recording sender and shuts it down
// when the test ends.
func newTestPool(t *testing.T, size int, opts ...Option) *Pool {
	t.Helper()
	_, logger := newTestLogger(t)
	p, err := TryNew(size, append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Shutdown)
	return p
}

// waitTimeout fails the test if wg is not done within d.
func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("timed out after %v", d)
	}
}

// collector is a thread-safe list of ints.
type collector struct {
	mu   sync.Mutex
	vals []int
}

func (c *collector) add(v int) {
	c.mu.Lock()
	c.vals = append(c.vals, v)
	c.mu.Unlock()
}

func (c *collector) snapshot() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.vals...)
}
