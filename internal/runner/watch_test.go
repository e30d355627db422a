package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"vlife/internal/config"
)

type fakeController struct {
	mu     sync.Mutex
	speed  int
	paused bool
	calls  int
}

func (c *fakeController) SetSpeed(speed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
	c.calls++
}

func (c *fakeController) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

func (c *fakeController) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

func (c *fakeController) state() (int, bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed, c.paused, c.calls
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vlife.yaml")
	ctl := &fakeController{}

	cfg := config.DefaultConfig()
	cfg.Runner.Speed = 4
	cfg.Runner.Paused = true
	require.NoError(t, cfg.Save(path))

	reload(path, ctl, zaptest.NewLogger(t))
	speed, paused, _ := ctl.state()
	assert.Equal(t, 4, speed)
	assert.True(t, paused)

	t.Run("invalid file is ignored", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("runner:\n  speed: 9\n"), 0644))
		reload(path, ctl, zaptest.NewLogger(t))
		speed, paused, calls := ctl.state()
		assert.Equal(t, 4, speed)
		assert.True(t, paused)
		assert.Equal(t, 1, calls)
	})
}

func TestWatchConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vlife.yaml")
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Save(path))

	ctl := &fakeController{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- WatchConfig(ctx, path, ctl, 20*time.Millisecond, zaptest.NewLogger(t))
	}()

	cfg.Runner.Speed = 3
	cfg.Runner.Paused = true
	// Keep saving until the watcher is up and has applied a reload.
	require.Eventually(t, func() bool {
		if err := cfg.Save(path); err != nil {
			return false
		}
		speed, paused, _ := ctl.state()
		return speed == 3 && paused
	}, 5*time.Second, 100*time.Millisecond)

	// Unrelated files in the directory are ignored.
	time.Sleep(100 * time.Millisecond)
	_, _, calls := ctl.state()
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x"), 0644))
	time.Sleep(100 * time.Millisecond)
	_, _, after := ctl.state()
	assert.Equal(t, calls, after)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchConfig_MissingDirectory(t *testing.T) {
	err := WatchConfig(context.Background(), filepath.Join(t.TempDir(), "nope", "vlife.yaml"), &fakeController{}, 0, nil)
	assert.Error(t, err)
}
