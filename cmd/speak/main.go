// Package main provides a speech CLI for testing against a local
// VOICEVOX engine or a running speech server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/api/httpserver"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/audiofile"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/playback"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/queue"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/infra/voicevox"
)

var (
	app       = kingpin.New("voicevox-speak", "VOICEVOX speech client for testing")
	engineURL = app.Flag("engine", "VOICEVOX engine URL").Default("http://localhost:50021").String()
	speakerID = app.Flag("speaker", "Speaker style ID").Default("1").Int()
	speed     = app.Flag("speed", "Speed scale (0 = engine default)").Default("0").Float64()
	timeout   = app.Flag("timeout", "Engine request timeout").Default("30s").Duration()

	// say command
	sayCmd    = app.Command("say", "Synthesize text and play it")
	sayPlayer = sayCmd.Flag("player", "External player command (default: auto-detect)").String()
	sayText   = sayCmd.Arg("text", "Text to speak").Required().Strings()

	// speakers command
	speakersCmd = app.Command("speakers", "List available speakers")

	// query command
	queryCmd  = app.Command("query", "Print the audio query for text as JSON")
	queryText = queryCmd.Arg("text", "Text to analyze").Required().String()

	// synth command
	synthCmd  = app.Command("synth", "Synthesize text to a WAV file")
	synthOut  = synthCmd.Flag("out", "Output file").Default("speech.wav").String()
	synthText = synthCmd.Arg("text", "Text to synthesize").Required().String()

	// watch command
	watchCmd    = app.Command("watch", "Stream queue events from a running server")
	watchServer = watchCmd.Flag("server", "Server address").Default("http://localhost:8080").String()
	watchToken  = watchCmd.Flag("token", "Bearer token").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create engine client
	client, err := voicevox.New(voicevox.Config{
		URL:     *engineURL,
		Timeout: *timeout,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Execute command
	switch command {
	case sayCmd.FullCommand():
		say(ctx, client, strings.Join(*sayText, " "), *sayPlayer)
	case speakersCmd.FullCommand():
		listSpeakers(ctx, client)
	case queryCmd.FullCommand():
		printQuery(ctx, client, *queryText)
	case synthCmd.FullCommand():
		synthFile(ctx, client, *synthText, *synthOut)
	case watchCmd.FullCommand():
		watch(*watchServer, *watchToken)
	}
}

// say speaks text through the local queue so segments synthesize ahead
// of playback exactly like the server does.
func say(ctx context.Context, client *voicevox.Client, text, player string) {
	segments := speech.SplitText(text)
	if len(segments) == 0 {
		fmt.Println("Nothing to say")
		return
	}

	strategy, err := buildStrategy(player)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	files := audiofile.NewManager("")
	defer files.Close()

	mgr := queue.NewManager(queue.Config{
		PrefetchSize:      2,
		DefaultSpeaker:    *speakerID,
		DefaultSpeedScale: *speed,
	}, client, strategy, files)
	mgr.Start()
	defer mgr.Close()

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStopping...")
		mgr.Close()
		os.Exit(0)
	}()

	appendMode := false
	waitEnd := true

	type pending struct {
		text string
		end  *speech.Signal
	}
	pendings := make([]pending, 0, len(segments))

	for _, segment := range segments {
		res, err := mgr.Enqueue(queue.EnqueueRequest{
			Text:    segment,
			Options: speech.Options{Immediate: &appendMode, WaitForEnd: &waitEnd},
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		pendings = append(pendings, pending{text: segment, end: res.End})
	}

	failed := false
	for _, p := range pendings {
		if err := p.end.Wait(ctx); err != nil {
			fmt.Printf("Error speaking %q: %v\n", p.text, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// buildStrategy prefers an external player and falls back to the
// in-process output device.
func buildStrategy(player string) (playback.Strategy, error) {
	if player != "" {
		return playback.NewCommandStrategy(map[string]any{"player": player})
	}
	if s, err := playback.NewCommandStrategy(nil); err == nil {
		return s, nil
	}
	return playback.NewStreamStrategy(nil)
}

func listSpeakers(ctx context.Context, client *voicevox.Client) {
	speakers, err := client.Speakers(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for _, sp := range speakers {
		fmt.Printf("%s (%s)\n", sp.Name, sp.SpeakerUUID)
		for _, style := range sp.Styles {
			fmt.Printf("  %4d  %s\n", style.ID, style.Name)
		}
	}
}

func printQuery(ctx context.Context, client *voicevox.Client, text string) {
	query, err := client.BuildQuery(ctx, text, *speakerID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if *speed > 0 {
		query.SetSpeedScale(*speed)
	}

	data, err := json.MarshalIndent(query, "", "  ")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func synthFile(ctx context.Context, client *voicevox.Client, text, out string) {
	query, err := client.BuildQuery(ctx, text, *speakerID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if *speed > 0 {
		query.SetSpeedScale(*speed)
	}

	wav, err := client.Synthesize(ctx, query, *speakerID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(out, wav, 0644); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d bytes to %s\n", len(wav), out)
}

// watch tails the queue event stream of a running server.
func watch(server, token string) {
	wsURL, err := eventsURL(server)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, res, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if res != nil {
		res.Body.Close()
	}
	defer conn.Close()

	fmt.Println("Watching queue events. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nDisconnecting...")
		os.Exit(0)
	}()

	for {
		var frame httpserver.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			fmt.Printf("Stream error: %v\n", err)
			os.Exit(1)
		}
		printFrame(frame)
	}
}

// eventsURL converts a server base URL into its websocket endpoint.
func eventsURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/events"
	return u.String(), nil
}

func printFrame(f httpserver.Frame) {
	at := time.Now().Format("15:04:05")
	switch f.Type {
	case "item_enqueued":
		fmt.Printf("[%s #%d] enqueued %s %q (queue: %d)\n", at, f.SequenceNo, f.ItemID, f.Text, f.QueueLength)
	case "item_status_changed":
		fmt.Printf("[%s #%d] item %s: %s -> %s (queue: %d)\n", at, f.SequenceNo, f.ItemID, f.StatusFrom, f.StatusTo, f.QueueLength)
	case "queue_state_changed":
		fmt.Printf("[%s #%d] queue: %s -> %s (queue: %d)\n", at, f.SequenceNo, f.QueueFrom, f.QueueState, f.QueueLength)
	default:
		fmt.Printf("[%s #%d] %s\n", at, f.SequenceNo, f.Type)
	}
}
