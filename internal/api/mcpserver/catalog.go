package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetSpeakersParams are the inputs of the get_speakers tool (none).
type GetSpeakersParams struct{}

// GetSpeakerDetailParams are the inputs of the get_speaker_detail tool.
type GetSpeakerDetailParams struct {
	UUID string `json:"uuid" mcp:"Speaker UUID from get_speakers"`
}

func (s *SpeechService) getSpeakers(ctx context.Context, req *mcp.CallToolRequest, input GetSpeakersParams) (*mcp.CallToolResult, any, error) {
	speakers, err := s.engine.Speakers(ctx)
	if err != nil {
		return errorResult("failed to list speakers: %v", err), nil, nil
	}

	payload, err := json.MarshalIndent(speakers, "", "  ")
	if err != nil {
		return errorResult("failed to encode speakers: %v", err), nil, nil
	}

	return textResult("%s", payload), nil, nil
}

func (s *SpeechService) getSpeakerDetail(ctx context.Context, req *mcp.CallToolRequest, input GetSpeakerDetailParams) (*mcp.CallToolResult, any, error) {
	if input.UUID == "" {
		return errorResult("uuid is required"), nil, nil
	}

	info, err := s.engine.SpeakerInfo(ctx, input.UUID)
	if err != nil {
		return errorResult("failed to fetch speaker info: %v", err), nil, nil
	}

	// Strip the base64 assets; they are megabytes of noise in a text result.
	type styleDetail struct {
		ID          int `json:"id"`
		SampleCount int `json:"sample_count"`
	}
	detail := struct {
		Policy string        `json:"policy"`
		Styles []styleDetail `json:"styles"`
	}{
		Policy: info.Policy,
		Styles: make([]styleDetail, 0, len(info.StyleInfos)),
	}
	for _, si := range info.StyleInfos {
		detail.Styles = append(detail.Styles, styleDetail{ID: si.ID, SampleCount: len(si.VoiceSamples)})
	}

	payload, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return errorResult("failed to encode speaker info: %v", err), nil, nil
	}

	return textResult("%s", payload), nil, nil
}
