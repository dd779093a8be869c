package playback

import (
	"bytes"
	"context"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/ebitengine/oto/v3"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/audio"
)

// StreamConfig holds stream strategy settings. The values fix the output
// device format; VOICEVOX emits 24kHz mono by default.
type StreamConfig struct {
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate" default:"24000" validate:"gt=0"`
	Channels   int `yaml:"channels" mapstructure:"channels" default:"1" validate:"oneof=1 2"`
}

// The process can hold only one output device context, so it is created
// lazily on first playback and shared afterwards.
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoErr    error
	otoFormat audio.Format
)

func sharedContext(f audio.Format) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   f.SampleRate,
			ChannelCount: f.Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = errors.Wrap(err, "failed to open output device")
			return
		}
		<-ready
		otoCtx = ctx
		otoFormat = f
		zlog.Debug().Msgf("playback: output device opened at %dHz/%dch", f.SampleRate, f.Channels)
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if f != otoFormat {
		return nil, errors.Newf("output device opened at %dHz/%dch, cannot switch to %dHz/%dch",
			otoFormat.SampleRate, otoFormat.Channels, f.SampleRate, f.Channels)
	}
	return otoCtx, nil
}

// StreamStrategy plays audio in process through the OS output device.
// It always supports buffer playback and needs no external binaries.
type StreamStrategy struct {
	cfg StreamConfig

	mu     sync.Mutex
	player *oto.Player
}

// NewStreamStrategy returns an in-process playback strategy.
func NewStreamStrategy(settings map[string]any) (*StreamStrategy, error) {
	var cfg StreamConfig
	if len(settings) > 0 {
		if err := mapstructure.Decode(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode settings")
		}
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &StreamStrategy{cfg: cfg}, nil
}

// SupportsStreaming always reports true.
func (s *StreamStrategy) SupportsStreaming() bool {
	return true
}

// PlayFromBuffer decodes the WAV container and plays its samples.
func (s *StreamStrategy) PlayFromBuffer(ctx context.Context, wav []byte) error {
	if ctx.Err() != nil {
		return nil
	}

	f, pcm, err := audio.Decode(wav)
	if err != nil {
		return errors.Wrap(err, "failed to decode audio")
	}
	if f.BitsPerSample != 16 {
		return errors.Newf("unsupported bit depth %d, want 16", f.BitsPerSample)
	}
	if f.SampleRate != s.cfg.SampleRate || f.Channels != s.cfg.Channels {
		return errors.Newf("audio is %dHz/%dch but output device is fixed at %dHz/%dch",
			f.SampleRate, f.Channels, s.cfg.SampleRate, s.cfg.Channels)
	}

	otoContext, err := sharedContext(audio.Format{SampleRate: f.SampleRate, Channels: f.Channels, BitsPerSample: 16})
	if err != nil {
		return err
	}

	player := otoContext.NewPlayer(bytes.NewReader(pcm))
	s.mu.Lock()
	s.player = player
	s.mu.Unlock()
	player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for playing := true; playing; {
		select {
		case <-ctx.Done():
			s.Stop()
			return nil
		case <-ticker.C:
			s.mu.Lock()
			playing = s.player != nil && s.player.IsPlaying()
			s.mu.Unlock()
		}
	}

	s.Stop()
	return nil
}

// PlayFromFile reads a WAV file and plays it through the output device.
func (s *StreamStrategy) PlayFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	return s.PlayFromBuffer(ctx, data)
}

// Stop closes the active player, if any.
func (s *StreamStrategy) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		return
	}
	if err := s.player.Close(); err != nil {
		zlog.Debug().Msgf("playback: close player: %v", err)
	}
	s.player = nil
}
