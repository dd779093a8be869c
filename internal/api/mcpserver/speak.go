package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	zlog "github.com/rs/zerolog/log"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/filter"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/queue"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

// SpeakParams are the inputs of the speak tool.
type SpeakParams struct {
	Text         string   `json:"text" mcp:"The text to speak. Sentences and newlines become separate queue items"`
	Speaker      *int     `json:"speaker,omitempty" mcp:"VOICEVOX style id (see get_speakers, default from server config)"`
	SpeedScale   *float64 `json:"speed_scale,omitempty" mcp:"Playback speed multiplier (e.g. 1.2, default from server config)"`
	Immediate    *bool    `json:"immediate,omitempty" mcp:"Interrupt current playback and clear the queue before speaking (default: true)"`
	WaitForStart *bool    `json:"wait_for_start,omitempty" mcp:"Return only after the first segment starts playing (default: false)"`
	WaitForEnd   *bool    `json:"wait_for_end,omitempty" mcp:"Return only after the last segment finishes playing (default: false)"`
}

// StopSpeakerParams are the inputs of the stop_speaker tool (none).
type StopSpeakerParams struct{}

func (s *SpeechService) speak(ctx context.Context, req *mcp.CallToolRequest, input SpeakParams) (*mcp.CallToolResult, any, error) {
	segments := speech.SplitText(input.Text)

	accepted := make([]string, 0, len(segments))
	for i, seg := range segments {
		result := s.chain.Execute(ctx, filter.Segment{Text: seg, Index: i})
		if !result.Accepted {
			zlog.Debug().Msgf("segment %d dropped by filter: %s", i, result.Code)
			continue
		}
		accepted = append(accepted, seg)
	}
	if len(accepted) == 0 {
		return errorResult("no speakable text"), nil, nil
	}

	speed := 0.0
	if input.SpeedScale != nil {
		speed = *input.SpeedScale
	}

	falseOpt := false
	var first, last *queue.Enqueued

	for i, seg := range accepted {
		opts := speech.Options{Immediate: &falseOpt}
		if i == 0 {
			// Only the first segment may interrupt; the rest must
			// append behind it or they would clear each other.
			opts.Immediate = input.Immediate
			opts.WaitForStart = input.WaitForStart
		}
		if i == len(accepted)-1 {
			opts.WaitForEnd = input.WaitForEnd
		}

		enq, err := s.queue.Enqueue(queue.EnqueueRequest{
			Text:       seg,
			Speaker:    input.Speaker,
			SpeedScale: speed,
			Options:    opts,
		})
		if err != nil {
			return errorResult("failed to enqueue segment %d: %v", i, err), nil, nil
		}

		if i == 0 {
			first = enq
		}
		last = enq
	}

	if first.Start != nil {
		if err := first.Start.Wait(ctx); err != nil {
			return errorResult("playback did not start: %v", err), nil, nil
		}
	}
	if last.End != nil {
		if err := last.End.Wait(ctx); err != nil {
			return errorResult("playback did not finish: %v", err), nil, nil
		}
		return textResult("Spoke %d segment(s)", len(accepted)), nil, nil
	}

	return textResult("Queued %d segment(s)", len(accepted)), nil, nil
}

func (s *SpeechService) stopSpeaker(ctx context.Context, req *mcp.CallToolRequest, input StopSpeakerParams) (*mcp.CallToolResult, any, error) {
	s.queue.Clear()
	return textResult("Playback stopped and queue cleared"), nil, nil
}
