package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sealtalk/domain"
	"sealtalk/domain/event"
	"sealtalk/feed"
	"sealtalk/internal"
	"sealtalk/moderation"
	"sealtalk/platform"
	"sealtalk/projection"
	"sealtalk/repositories"
	"sealtalk/search"
	"sealtalk/view"
	"sealtalk/workers"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the session lifecycle, and
// centralizes error reporting, so every defer (database close, subscription
// release) executes before the program exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Local storage (archive + search index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("archive opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing archive...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		_ = blugeWriter.Close()
	}()

	// 3. Platform clients & caller identity
	identity, err := platform.ParseIdentity(config.PlatformAccessToken)
	if err != nil {
		return err
	}
	api := platform.NewClient(log, config.PlatformURL, config.PlatformAnonKey, config.PlatformAccessToken)
	realtime := platform.NewRealtime(log, config.PlatformURL, config.PlatformAnonKey,
		config.PlatformAccessToken, "messages")

	// 4. Feed assembly
	archive := repositories.NewArchive(db, log)
	index := search.NewIndex(blugeWriter, log)
	store := projection.NewStore(log)
	reconciler := feed.NewReconciler(log, api, realtime, store, config.BufferSize,
		repositories.NewArchiveSink(archive, log), search.NewSink(index))

	maskRune, err := config.MaskRune()
	if err != nil {
		return err
	}
	masker, err := moderation.NewMasker(config.MutedWordList(), maskRune)
	if err != nil {
		return fmt.Errorf("building muted word masker: %w", err)
	}
	renderer := view.NewRenderer(os.Stdout, masker, config.GroupGap)
	reconciler.SetOnApply(func(e event.ChangeEvent) {
		if inserted, ok := e.(event.MessageInserted); ok {
			renderer.RenderMessage(inserted.Message)
		}
	})

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervision (local retention mirror)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewPruneWorker(log, archive, config.PruneInterval, domain.RetentionWindow))
	go sup.Run(ctx)

	// 7. Daily quote, purely cosmetic
	if quote, err := api.DailyQuote(ctx); err == nil {
		renderer.RenderQuote(quote.Quote, quote.Author)
	}

	// 8. Session: bounded fetch, then live events
	if err = reconciler.StartSession(ctx, identity); err != nil {
		return fmt.Errorf("session failed to start: %w", err)
	}
	defer reconciler.EndSession()
	renderer.RenderFeed(reconciler.Messages())

	// 9. Input loop
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down gracefully...")
			sup.Stop()
			return nil
		case line, ok := <-lines:
			if !ok {
				sup.Stop()
				return nil
			}
			switch {
			case line == "/quit":
				sup.Stop()
				return nil
			case strings.HasPrefix(line, "/find "):
				runSearch(ctx, index, strings.TrimPrefix(line, "/find "))
			default:
				if err := reconciler.Send(ctx, line); err != nil {
					color.Red.Printf("send failed: %v\n", err)
				}
			}
		}
	}
}

func runSearch(ctx context.Context, index *search.Index, terms string) {
	hits, err := index.Search(ctx, terms, 10)
	if err != nil {
		color.Red.Printf("search failed: %v\n", err)
		return
	}
	if len(hits) == 0 {
		color.Yellow.Println("no matches")
		return
	}
	for _, hit := range hits {
		fmt.Printf("%s %s\n", color.Cyan.Sprintf("%s:", hit.Sender), hit.Content)
	}
}
