package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	zlog "github.com/rs/zerolog/log"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

// GenerateQueryParams are the inputs of the generate_query tool.
type GenerateQueryParams struct {
	Text    string `json:"text" mcp:"The text to build a synthesis query for"`
	Speaker *int   `json:"speaker,omitempty" mcp:"VOICEVOX style id (default from server config)"`
}

// SynthesizeFileParams are the inputs of the synthesize_file tool.
type SynthesizeFileParams struct {
	Text       *string  `json:"text,omitempty" mcp:"The text to synthesize (mutually exclusive with query)"`
	Query      *string  `json:"query,omitempty" mcp:"A synthesis query JSON from generate_query (mutually exclusive with text)"`
	Speaker    *int     `json:"speaker,omitempty" mcp:"VOICEVOX style id (default from server config)"`
	SpeedScale *float64 `json:"speed_scale,omitempty" mcp:"Playback speed multiplier applied to the query"`
	OutputPath *string  `json:"output_path,omitempty" mcp:"Destination file path (default: a fresh temp file)"`
}

func (s *SpeechService) generateQuery(ctx context.Context, req *mcp.CallToolRequest, input GenerateQueryParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Text) == "" {
		return errorResult("text is required"), nil, nil
	}

	query, err := s.engine.BuildQuery(ctx, input.Text, s.speakerOrDefault(input.Speaker))
	if err != nil {
		return errorResult("failed to build query: %v", err), nil, nil
	}

	payload, err := json.Marshal(query)
	if err != nil {
		return errorResult("failed to encode query: %v", err), nil, nil
	}

	return textResult("%s", payload), nil, nil
}

func (s *SpeechService) synthesizeFile(ctx context.Context, req *mcp.CallToolRequest, input SynthesizeFileParams) (*mcp.CallToolResult, any, error) {
	query, result := s.resolveQuery(ctx, input)
	if result != nil {
		return result, nil, nil
	}

	if input.SpeedScale != nil && *input.SpeedScale > 0 {
		query = query.Clone()
		query.SetSpeedScale(*input.SpeedScale)
	}

	data, err := s.engine.Synthesize(ctx, query, s.speakerOrDefault(input.Speaker))
	if err != nil {
		return errorResult("synthesis failed: %v", err), nil, nil
	}

	path, err := s.writeAudioFile(input.OutputPath, data)
	if err != nil {
		return errorResult("failed to write file: %v", err), nil, nil
	}

	zlog.Debug().Msgf("synthesized %d bytes to %s", len(data), path)
	return textResult("%s", path), nil, nil
}

// resolveQuery turns the text-or-query input into a synthesis query. The
// second return value is a tool error result when the input is unusable.
func (s *SpeechService) resolveQuery(ctx context.Context, input SynthesizeFileParams) (*speech.AudioQuery, *mcp.CallToolResult) {
	hasText := input.Text != nil && strings.TrimSpace(*input.Text) != ""
	hasQuery := input.Query != nil && strings.TrimSpace(*input.Query) != ""

	switch {
	case hasText && hasQuery:
		return nil, errorResult("text and query are mutually exclusive")
	case hasQuery:
		query, err := speech.ParseAudioQuery([]byte(*input.Query))
		if err != nil {
			return nil, errorResult("invalid query: %v", err)
		}
		return query, nil
	case hasText:
		query, err := s.engine.BuildQuery(ctx, *input.Text, s.speakerOrDefault(input.Speaker))
		if err != nil {
			return nil, errorResult("failed to build query: %v", err)
		}
		return query, nil
	default:
		return nil, errorResult("text or query is required")
	}
}

// writeAudioFile stores WAV bytes at the requested path, or in a fresh
// temp file when no path was given.
func (s *SpeechService) writeAudioFile(outputPath *string, data []byte) (string, error) {
	if outputPath != nil && *outputPath != "" {
		if err := os.WriteFile(*outputPath, data, 0644); err != nil {
			return "", err
		}
		return *outputPath, nil
	}

	f, err := os.CreateTemp(s.cfg.Queue.TempDir, "speech-*.wav")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// speakerOrDefault picks the caller's speaker or the configured default.
func (s *SpeechService) speakerOrDefault(speaker *int) int {
	if speaker != nil {
		return *speaker
	}
	return s.cfg.Engine.DefaultSpeaker
}
