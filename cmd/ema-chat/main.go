package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-chat/cmd/ema-chat/tui"
	"github.com/koscakluka/ema-chat/core/audio"
	"github.com/koscakluka/ema-chat/core/audio/miniaudio"
	"github.com/koscakluka/ema-chat/core/audio/portaudio"
	"github.com/koscakluka/ema-chat/core/presenter"
	"github.com/koscakluka/ema-chat/core/session"
	"github.com/koscakluka/ema-chat/core/stream"
	"github.com/koscakluka/ema-chat/core/transport"
	"github.com/koscakluka/ema-chat/internal/config"
)

var version = "0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so that deferred cleanup finishes
// before main exits.
func run(args []string, stdout, stderr io.Writer) int {
	var (
		configPath  string
		showVersion bool
		plain       bool
		printSchema bool
		overrides   config.Config
	)

	flags := flag.NewFlagSet("ema-chat", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&configPath, "config", "", "Path to configuration file")
	flags.StringVar(&overrides.Server.URL, "url", "", "Chat endpoint URL")
	flags.StringVar(&overrides.Server.Transport, "transport", "", "Transport to use: http or websocket")
	flags.StringVar(&overrides.Audio.Backend, "audio", "", "Audio backend: miniaudio, portaudio or none")
	flags.BoolVar(&plain, "plain", false, "Read messages from stdin and log output instead of running the terminal UI")
	flags.BoolVar(&printSchema, "schema", false, "Print the JSON schema of stream records and exit")
	flags.BoolVar(&showVersion, "version", false, "Print version and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	if printSchema {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(stream.Schema()); err != nil {
			fmt.Fprintf(stderr, "failed to encode schema: %v\n", err)
			return 1
		}
		return 0
	}

	cfg, err := config.Load(configPath)
	if err == nil {
		cfg, err = config.Merge(cfg, overrides)
	}
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, closeLog, err := newLogger(cfg.Telemetry, plain)
	if err != nil {
		fmt.Fprintf(stderr, "failed to set up logging: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Error("failed to set up tracing", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	encoding := audio.EncodingInfo{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		Format:     audio.EncodingLinear16,
	}
	sink, closeSink, err := newSink(cfg.Audio, encoding, logger)
	if err != nil {
		logger.Error("failed to open audio output", slog.String("error", err.Error()))
		return 1
	}
	defer closeSink()

	t := newTransport(cfg.Server, logger)
	opts := []session.Option{
		session.WithEncoding(encoding),
		session.WithInterClipGap(cfg.Audio.InterClipGap()),
		session.WithMinPayloadChars(cfg.Audio.MinPayloadChars),
		session.WithMaxUnlockAttempts(cfg.Unlock.MaxAttempts),
		session.WithPurgeOnTransportError(cfg.Session.PurgeOnTransportError),
		session.WithLogger(logger),
	}

	if plain {
		err = runPlain(ctx, t, sink, logger, opts)
	} else {
		err = runTUI(ctx, t, sink, opts)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("ema-chat exited with error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func newSink(cfg config.AudioConfig, encoding audio.EncodingInfo, logger *slog.Logger) (audio.Sink, func(), error) {
	switch cfg.Backend {
	case "miniaudio":
		sink, err := miniaudio.NewSink(encoding, logger)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	case "portaudio":
		sink, err := portaudio.NewSink(encoding, cfg.BufferFrames)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	default:
		return audio.NewTimedSink(), func() {}, nil
	}
}

func newTransport(cfg config.ServerConfig, logger *slog.Logger) transport.Transport {
	if cfg.Transport == "websocket" {
		return transport.NewWebSocket(cfg.URL, transport.WithWebSocketLogger(logger))
	}
	return transport.NewHTTP(cfg.URL,
		transport.WithRequestTimeout(cfg.RequestTimeout()),
		transport.WithHTTPLogger(logger),
	)
}

func runTUI(ctx context.Context, t transport.Transport, sink audio.Sink, opts []session.Option) error {
	p := tui.NewPresenter()
	controller := session.New(t, p, sink, opts...)
	defer controller.Close()

	program := tea.NewProgram(tui.NewModel(ctx, controller), tea.WithAltScreen(), tea.WithContext(ctx))
	p.Attach(program)

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// runPlain sends one message per stdin line and waits for its audio
// before reading the next, the same way the UI keeps input disabled.
func runPlain(ctx context.Context, t transport.Transport, sink audio.Sink, logger *slog.Logger, opts []session.Option) error {
	controller := session.New(t, presenter.NewLog(logger), sink, opts...)
	defer controller.Close()

	if err := controller.EnsureUnlocked(ctx); err != nil {
		logger.Warn("audio output not unlocked", slog.String("error", err.Error()))
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		err := controller.Submit(ctx, scanner.Text())
		if errors.Is(err, session.ErrEmptyMessage) {
			continue
		} else if err != nil {
			logger.Error("message failed", slog.String("error", err.Error()))
		}

		if err := controller.AwaitIdle(ctx); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return controller.AwaitIdle(ctx)
}
