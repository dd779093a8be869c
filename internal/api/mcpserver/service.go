// Package mcpserver registers the speech tools on an MCP server.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/filter"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/queue"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/infra/config"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/infra/voicevox"
)

// SpeechService exposes the speech queue and engine catalog as MCP tools.
type SpeechService struct {
	cfg    *config.Config
	queue  *queue.Manager
	engine *voicevox.Client
	chain  *filter.Chain
}

// NewSpeechService creates a new speech service.
func NewSpeechService(cfg *config.Config, mgr *queue.Manager, engine *voicevox.Client, chain *filter.Chain) *SpeechService {
	return &SpeechService{
		cfg:    cfg,
		queue:  mgr,
		engine: engine,
		chain:  chain,
	}
}

// NewServer builds an MCP server with all speech tools registered.
func (s *SpeechService) NewServer(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "voicevox-speech",
		Title:   "VOICEVOX Speech",
		Version: version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "speak",
		Title:       "Speak",
		Description: "Queues text for speech playback through the VOICEVOX engine. Long text is split into sentences and spoken in order.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Speak Text",
			ReadOnlyHint:   false,
			IdempotentHint: false,
		},
	}, s.speak)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "stop_speaker",
		Title:       "Stop Speaker",
		Description: "Stops the current playback and clears every queued item.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Stop Playback",
			ReadOnlyHint:   false,
			IdempotentHint: true,
		},
	}, s.stopSpeaker)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "generate_query",
		Title:       "Generate Query",
		Description: "Builds a synthesis query for the given text without playing it. The query can be edited and passed back to speak or synthesize_file.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Generate Synthesis Query",
			ReadOnlyHint:   true,
			IdempotentHint: true,
		},
	}, s.generateQuery)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "synthesize_file",
		Title:       "Synthesize File",
		Description: "Synthesizes text or a query into a WAV file on disk and returns the path, without playing it.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Synthesize To File",
			ReadOnlyHint:   false,
			IdempotentHint: false,
		},
	}, s.synthesizeFile)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_speakers",
		Title:       "Get Speakers",
		Description: "Lists the speakers and styles installed on the VOICEVOX engine.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "List Speakers",
			ReadOnlyHint:   true,
			IdempotentHint: true,
		},
	}, s.getSpeakers)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_speaker_detail",
		Title:       "Get Speaker Detail",
		Description: "Returns policy and style details for one speaker identified by UUID.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Speaker Detail",
			ReadOnlyHint:   true,
			IdempotentHint: true,
		},
	}, s.getSpeakerDetail)

	return srv
}

// Run serves the tools over stdio until the context is cancelled.
func (s *SpeechService) Run(ctx context.Context, version string) error {
	return s.NewServer(version).Run(ctx, &mcp.StdioTransport{})
}

// textResult wraps a plain string in a tool result.
func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

// errorResult wraps a failure message in a tool error result.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: "+format, args...)}},
		IsError: true,
	}
}
