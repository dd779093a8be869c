package playback

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubLookPath(t *testing.T, fn func(name string) (string, error)) {
	t.Helper()
	orig := lookPath
	lookPath = fn
	t.Cleanup(func() { lookPath = orig })
}

func TestNewCommandStrategy_CustomPlayer(t *testing.T) {
	stubLookPath(t, func(name string) (string, error) {
		if name == "myplayer" {
			return "/usr/local/bin/myplayer", nil
		}
		return "", exec.ErrNotFound
	})

	s, err := NewCommandStrategy(map[string]any{"player": "myplayer --gapless"})
	require.NoError(t, err)
	assert.Equal(t, "myplayer", s.spec.bin)
	assert.Equal(t, []string{"--gapless"}, s.spec.fileArgs)
	assert.False(t, s.SupportsStreaming())
}

func TestNewCommandStrategy_CustomPlayerMissing(t *testing.T) {
	stubLookPath(t, func(string) (string, error) {
		return "", exec.ErrNotFound
	})

	_, err := NewCommandStrategy(map[string]any{"player": "ghostplayer"})
	assert.ErrorContains(t, err, "ghostplayer")
}

func TestNewCommandStrategy_NoPlayerFound(t *testing.T) {
	stubLookPath(t, func(string) (string, error) {
		return "", exec.ErrNotFound
	})

	_, err := NewCommandStrategy(nil)
	assert.ErrorContains(t, err, "no audio player found")
}

func TestNewCommandStrategy_ProbesCandidates(t *testing.T) {
	want := playerCandidates()[0].bin
	stubLookPath(t, func(name string) (string, error) {
		if name == want {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	})

	s, err := NewCommandStrategy(nil)
	require.NoError(t, err)
	assert.Equal(t, want, s.spec.bin)
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		path     string
		expected []string
	}{
		{
			name:     "path appended",
			args:     []string{"-q", "1"},
			path:     "/tmp/a.wav",
			expected: []string{"-q", "1", "/tmp/a.wav"},
		},
		{
			name:     "no args",
			args:     nil,
			path:     "/tmp/a.wav",
			expected: []string{"/tmp/a.wav"},
		},
		{
			name:     "placeholder substituted",
			args:     []string{"-NoProfile", "-Command", "(New-Object Media.SoundPlayer '{path}').PlaySync()"},
			path:     `C:\tmp\a.wav`,
			expected: []string{"-NoProfile", "-Command", `(New-Object Media.SoundPlayer 'C:\tmp\a.wav').PlaySync()`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildArgs(tt.args, tt.path))
		})
	}
}

func TestCommandStrategy_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX coreutils")
	}

	t.Run("successful playback", func(t *testing.T) {
		s := &CommandStrategy{spec: playerSpec{bin: "true"}}
		assert.NoError(t, s.PlayFromFile(context.Background(), "/dev/null"))
	})

	t.Run("player failure surfaces", func(t *testing.T) {
		s := &CommandStrategy{spec: playerSpec{bin: "false"}}
		assert.Error(t, s.PlayFromFile(context.Background(), "/dev/null"))
	})

	t.Run("cancellation returns nil", func(t *testing.T) {
		s := &CommandStrategy{spec: playerSpec{bin: "sleep"}}
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := s.PlayFromFile(ctx, "10")
		assert.NoError(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("stop kills the player and returns nil", func(t *testing.T) {
		s := &CommandStrategy{spec: playerSpec{bin: "sleep"}}
		done := make(chan error, 1)
		go func() {
			done <- s.PlayFromFile(context.Background(), "10")
		}()

		assert.Eventually(t, func() bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.cmd != nil
		}, time.Second, 10*time.Millisecond)

		s.Stop()
		s.Stop() // second stop is a no-op

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("playback did not stop")
		}
	})

	t.Run("already cancelled context is a no-op", func(t *testing.T) {
		s := &CommandStrategy{spec: playerSpec{bin: "false"}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.NoError(t, s.PlayFromFile(ctx, "/dev/null"))
	})

	t.Run("stdin playback", func(t *testing.T) {
		s := &CommandStrategy{spec: playerSpec{bin: "cat", stdinArgs: nil, canStdin: true}}
		assert.NoError(t, s.PlayFromBuffer(context.Background(), []byte("pcm")))
	})

	t.Run("stdin refused without capability", func(t *testing.T) {
		s := &CommandStrategy{spec: playerSpec{bin: "true"}}
		assert.Error(t, s.PlayFromBuffer(context.Background(), []byte("pcm")))
	})
}
