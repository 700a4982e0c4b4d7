// Command longscribe transcribes long-form audio: WAV in, plain text or
// SubRip subtitles out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/longscribe/longscribe/internal/config"
	diagpg "github.com/longscribe/longscribe/internal/diag/postgres"
	"github.com/longscribe/longscribe/internal/filter"
	"github.com/longscribe/longscribe/internal/invoke"
	"github.com/longscribe/longscribe/internal/observe"
	"github.com/longscribe/longscribe/internal/pipeline"
	"github.com/longscribe/longscribe/internal/preset"
	"github.com/longscribe/longscribe/internal/vad"
	asropenai "github.com/longscribe/longscribe/pkg/asr/openai"
	"github.com/longscribe/longscribe/pkg/asr/whisper"
	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/embeddings"
	embopenai "github.com/longscribe/longscribe/pkg/embeddings/openai"
	"github.com/longscribe/longscribe/pkg/transcript"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file (optional)")
	audioPath := flag.String("audio", "", "path to the WAV file to transcribe")
	presetName := flag.String("preset", "", "preset name, overriding the config file")
	outPath := flag.String("out", "-", "output path, or - for stdout")
	format := flag.String("format", "text", "output format: text or srt")
	flag.Parse()

	if *audioPath == "" {
		fmt.Fprintln(os.Stderr, "longscribe: -audio is required")
		flag.Usage()
		return 2
	}
	if *format != "text" && *format != "srt" {
		fmt.Fprintf(os.Stderr, "longscribe: unknown format %q\n", *format)
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "longscribe: %v\n", err)
			return 1
		}
	}
	if *presetName != "" {
		cfg.Preset = *presetName
		if !preset.Name(cfg.Preset).IsValid() {
			fmt.Fprintf(os.Stderr, "longscribe: invalid preset %q; valid values: %v\n", cfg.Preset, preset.Names())
			return 2
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			slog.Error("failed to initialise metrics", "err", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("metrics shutdown error", "err", err)
			}
		}()
	}

	track, err := audio.LoadWAV(*audioPath)
	if err != nil {
		slog.Error("failed to load audio", "path", *audioPath, "err", err)
		return 1
	}
	slog.Info("audio loaded",
		"path", *audioPath,
		"duration", track.Duration(),
		"sample_rate", track.SampleRate())

	runner, cleanup, err := buildRunner(ctx, cfg)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}
	defer cleanup()

	result, report, err := runner.Run(ctx, pipeline.Request{
		Track:         track,
		Source:        *audioPath,
		Preset:        preset.Name(cfg.Preset),
		Overrides:     cfg.Overrides,
		Language:      cfg.Language,
		InitialPrompt: cfg.InitialPrompt,
	})
	if err != nil {
		slog.Error("transcription failed", "err", err)
		return 1
	}
	for _, w := range report.Warnings {
		slog.Warn("run degraded", "warning", w)
	}

	if err := writeOutput(*outPath, *format, result); err != nil {
		slog.Error("failed to write output", "err", err)
		return 1
	}
	return 0
}

// buildRunner assembles the pipeline from configuration. The returned
// cleanup closes every resource-holding component and is safe to call once.
func buildRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Recognizers.
	registry := invoke.Registry{}
	for id, path := range cfg.Recognizers.Whisper.Models {
		r, err := whisper.New(path, id)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("whisper model %q: %w", id, err)
		}
		closers = append(closers, func() { r.Close() })
		registry[id] = r
	}
	for _, h := range cfg.Recognizers.OpenAI {
		var opts []asropenai.Option
		if h.BaseURL != "" {
			opts = append(opts, asropenai.WithBaseURL(h.BaseURL))
		}
		r, err := asropenai.New(h.APIKey, h.Model, opts...)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("openai recognizer %q: %w", h.ServeAs, err)
		}
		registry[h.ServeAs] = r
	}
	if len(registry) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no recognizer configured; declare recognizers in the config file")
	}

	// Speech detection: Silero when configured, energy always as fallback.
	var strategies []vad.Strategy
	if cfg.VAD.SileroModelPath != "" {
		silero, err := vad.NewSilero(cfg.VAD.SileroModelPath)
		if err != nil {
			slog.Warn("silero unavailable, energy fallback only", "err", err)
		} else {
			closers = append(closers, func() { silero.Close() })
			strategies = append(strategies, silero)
		}
	}
	strategies = append(strategies, vad.NewEnergy())

	opts := []pipeline.Option{
		pipeline.WithDetector(vad.NewDetector(strategies...)),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, pipeline.WithMetrics(observe.DefaultMetrics()))
	}

	// Embeddings, shared by the embedding scorer and verdict recording.
	var embedder embeddings.Provider
	if cfg.Embeddings.Model != "" {
		var eopts []embopenai.Option
		if cfg.Embeddings.BaseURL != "" {
			eopts = append(eopts, embopenai.WithBaseURL(cfg.Embeddings.BaseURL))
		}
		p, err := embopenai.New(cfg.Embeddings.APIKey, cfg.Embeddings.Model, eopts...)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("embeddings provider: %w", err)
		}
		embedder = p
		opts = append(opts, pipeline.WithVerdictEmbeddings(embedder))
	}
	if cfg.Filters.Scorer == config.ScorerEmbedding {
		opts = append(opts, pipeline.WithScorer(&filter.EmbeddingScorer{Provider: embedder}))
	}

	// Diagnostics.
	if cfg.Diagnostics.PostgresDSN != "" {
		rec, err := diagpg.New(ctx, cfg.Diagnostics.PostgresDSN, cfg.Diagnostics.EmbeddingDimensions)
		if err != nil {
			slog.Warn("diagnostics store unavailable, continuing without", "err", err)
		} else {
			closers = append(closers, rec.Close)
			opts = append(opts, pipeline.WithRecorder(rec))
		}
	}

	return pipeline.NewRunner(registry, opts...), cleanup, nil
}

// writeOutput renders the transcript to path in the requested format.
func writeOutput(path, format string, t transcript.Transcript) error {
	out := os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if format == "srt" {
		return t.WriteSRT(out, 500*time.Millisecond)
	}
	_, err := fmt.Fprintln(out, t.Text())
	return err
}
