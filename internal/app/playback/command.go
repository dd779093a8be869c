package playback

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// CommandConfig holds command strategy settings.
type CommandConfig struct {
	// Player overrides player discovery with a full command line, e.g.
	// "mpv --really-quiet". The audio file path is appended. Players
	// configured this way are used in file mode only.
	Player string `yaml:"player" mapstructure:"player"`
}

// playerSpec describes one external player candidate.
type playerSpec struct {
	bin       string
	fileArgs  []string // a "{path}" placeholder is substituted, otherwise the path is appended
	stdinArgs []string
	canStdin  bool
}

// playerCandidates returns the players probed on this platform, in
// preference order.
func playerCandidates() []playerSpec {
	switch runtime.GOOS {
	case "darwin":
		return []playerSpec{
			{bin: "afplay", fileArgs: []string{"-q", "1"}},
		}
	case "windows":
		return []playerSpec{
			{bin: "powershell", fileArgs: []string{"-NoProfile", "-Command", "(New-Object Media.SoundPlayer '{path}').PlaySync()"}},
		}
	default:
		return []playerSpec{
			{bin: "paplay", canStdin: true},
			{bin: "aplay", fileArgs: []string{"-q"}, stdinArgs: []string{"-q", "-"}, canStdin: true},
			{bin: "ffplay", fileArgs: []string{"-autoexit", "-nodisp", "-loglevel", "quiet"}, stdinArgs: []string{"-autoexit", "-nodisp", "-loglevel", "quiet", "-"}, canStdin: true},
			{bin: "mpv", fileArgs: []string{"--really-quiet"}, stdinArgs: []string{"--really-quiet", "-"}, canStdin: true},
		}
	}
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// CommandStrategy plays audio through an external player binary. The
// player is discovered once at construction; stdin-capable players also
// serve buffer playback.
type CommandStrategy struct {
	spec playerSpec

	mu      sync.Mutex
	cmd     *exec.Cmd
	stopped bool
}

// NewCommandStrategy probes for a usable player and returns the strategy.
func NewCommandStrategy(settings map[string]any) (*CommandStrategy, error) {
	var cfg CommandConfig
	if len(settings) > 0 {
		if err := mapstructure.Decode(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode settings")
		}
	}

	if cfg.Player != "" {
		fields := strings.Fields(cfg.Player)
		if _, err := lookPath(fields[0]); err != nil {
			return nil, errors.Wrapf(err, "configured player %s not found", fields[0])
		}
		return &CommandStrategy{spec: playerSpec{bin: fields[0], fileArgs: fields[1:]}}, nil
	}

	for _, spec := range playerCandidates() {
		if _, err := lookPath(spec.bin); err == nil {
			zlog.Debug().Msgf("playback: using player %s", spec.bin)
			return &CommandStrategy{spec: spec}, nil
		}
	}
	return nil, errors.New("no audio player found")
}

// SupportsStreaming reports whether the player reads audio from stdin.
func (s *CommandStrategy) SupportsStreaming() bool {
	return s.spec.canStdin
}

// PlayFromFile plays a WAV file through the player.
func (s *CommandStrategy) PlayFromFile(ctx context.Context, path string) error {
	return s.run(ctx, buildArgs(s.spec.fileArgs, path), nil)
}

// PlayFromBuffer pipes WAV bytes to the player's stdin.
func (s *CommandStrategy) PlayFromBuffer(ctx context.Context, wav []byte) error {
	if !s.spec.canStdin {
		return errors.Newf("player %s cannot read from stdin", s.spec.bin)
	}
	return s.run(ctx, s.spec.stdinArgs, bytes.NewReader(wav))
}

// Stop kills the player process, if one is running.
func (s *CommandStrategy) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil || s.stopped {
		return
	}
	s.stopped = true
	if err := s.cmd.Process.Kill(); err != nil {
		zlog.Debug().Msgf("playback: kill %s: %v", s.spec.bin, err)
	}
}

func (s *CommandStrategy) run(ctx context.Context, args []string, stdin io.Reader) error {
	if ctx.Err() != nil {
		return nil
	}

	cmd := exec.Command(s.spec.bin, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.mu.Lock()
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return errors.Wrapf(err, "failed to start %s", s.spec.bin)
	}
	s.cmd = cmd
	s.stopped = false
	s.mu.Unlock()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var err error
	select {
	case <-ctx.Done():
		s.Stop()
		<-waitCh
	case err = <-waitCh:
	}

	s.mu.Lock()
	wasStopped := s.stopped
	s.cmd = nil
	s.stopped = false
	s.mu.Unlock()

	if ctx.Err() != nil || wasStopped {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "%s failed: %s", s.spec.bin, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func buildArgs(args []string, path string) []string {
	out := make([]string, 0, len(args)+1)
	substituted := false
	for _, a := range args {
		if strings.Contains(a, "{path}") {
			a = strings.ReplaceAll(a, "{path}", path)
			substituted = true
		}
		out = append(out, a)
	}
	if !substituted {
		out = append(out, path)
	}
	return out
}
