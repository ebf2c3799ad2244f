// Command bookgen generates a complete book from a story description
// file, printing progress as the pipeline runs.
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

	"gopkg.in/yaml.v3"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/config"
	"github.com/AFK4203/Book-generator-V3/internal/core"
	"github.com/AFK4203/Book-generator-V3/internal/document"
	"github.com/AFK4203/Book-generator-V3/internal/events"
	"github.com/AFK4203/Book-generator-V3/internal/storage"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

func main() {
	inputPath := flag.String("input", "", "story description file (YAML)")
	configPath := flag.String("config", "", "path to config file")
	dataDir := flag.String("data", "", "override output data directory")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: bookgen -input story.yaml [-config config.yaml] [-data dir]")
		os.Exit(1)
	}

	if err := run(*inputPath, *configPath, *dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "bookgen: %v\n", err)
		os.Exit(1)
	}
}

func run(inputPath, configPath, dataDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading story file: %w", err)
	}
	var input story.Input
	if err := yaml.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parsing story file: %w", err)
	}
	if err := input.Validate(); err != nil {
		return err
	}

	backend := agent.NewHTTPBackend(cfg.AI.APIKey,
		agent.WithModel(cfg.AI.Model),
		agent.WithBaseURL(cfg.AI.BaseURL),
		agent.WithTimeout(time.Duration(cfg.AI.Timeout)*time.Second))
	client := agent.NewClient(backend,
		agent.WithRetry(cfg.Limits.MaxRetries),
		agent.WithRateLimit(cfg.Limits.RateLimit.RequestsPerMinute, cfg.Limits.RateLimit.BurstSize))

	fs := storage.NewFileSystem(cfg.Paths.DataDir)
	store := storage.NewSessionStore(fs)
	bus := events.NewBus()
	pipeline := core.NewPipeline(client, store, document.NewAssembler(fs), bus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Limits.SessionTimeout)
	defer cancel()

	session := story.NewSession(input)
	fmt.Printf("Session %s: generating %d chapters\n", session.ID, input.TotalChapters)

	sub := bus.Subscribe(session.ID)
	defer bus.Unsubscribe(session.ID, sub)
	go func() {
		for ev := range sub {
			switch ev.Kind {
			case events.KindPhase:
				fmt.Printf("[%3.0f%%] %s\n", ev.Progress, ev.Phase)
			case events.KindAgent:
				fmt.Printf("       %s: %s\n", ev.AgentName, ev.Message)
			case events.KindError:
				fmt.Printf("       error: %s\n", ev.Message)
			}
		}
	}()

	result, err := pipeline.Run(ctx, session)
	if err != nil {
		return err
	}

	fmt.Printf("\nDone: %d chapters, %d words (~%d pages, %s)\n",
		len(session.Snapshot().Chapters), result.Format.TotalWords,
		result.Format.EstimatedPages, result.Write.LengthCategory)
	if result.Check.Summary.ChaptersValidated > 0 {
		s := result.Check.Summary
		fmt.Printf("Validation: score %.1f (%s), %d issues, %d chapters fixed\n",
			s.Score, s.Quality, s.TotalIssues, s.ChaptersFixed)
		for _, rec := range s.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
	for phase, phaseErr := range result.Errors {
		fmt.Printf("Degraded phase %s: %v\n", phase, phaseErr)
	}
	fmt.Printf("Manuscript: %s\n", result.Format.Path)
	return nil
}
