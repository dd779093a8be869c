package playback

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/infra/config"
)

// NewFromConfig creates the playback strategy selected by configuration.
// Mode "auto" prefers an external player and falls back to the
// in-process output device when none is installed.
func NewFromConfig(cfg *config.Config) (Strategy, error) {
	mode := cfg.Playback.Mode
	settings := cfg.Playback.Settings
	zlog.Debug().Msgf("creating playback strategy: mode=%s settings=%+v", mode, settings)

	switch mode {
	case "command":
		return NewCommandStrategy(settings)

	case "stream":
		return NewStreamStrategy(settings)

	case "auto", "":
		command, err := NewCommandStrategy(settings)
		if err == nil {
			zlog.Info().Msgf("registered playback strategy: command (%s)", command.spec.bin)
			return command, nil
		}
		zlog.Debug().Msgf("no external player found, using output device: %v", err)
		return NewStreamStrategy(settings)

	default:
		return nil, errors.Newf("unsupported playback mode: %s", mode)
	}
}
