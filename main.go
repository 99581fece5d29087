package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/r3labs/sse/v2"

	"github.com/galleryscreen/mosaic/alerts"
	"github.com/galleryscreen/mosaic/assets"
	"github.com/galleryscreen/mosaic/config"
	"github.com/galleryscreen/mosaic/db"
	"github.com/galleryscreen/mosaic/display"
	"github.com/galleryscreen/mosaic/events"
	"github.com/galleryscreen/mosaic/gallery"
	"github.com/galleryscreen/mosaic/migrations"
	"github.com/galleryscreen/mosaic/shared"
	"github.com/galleryscreen/mosaic/utils"
)

func main() {

	if err := godotenv.Load(); err != nil {
		fmt.Println(err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.GetLogLevel(),
	})))

	store, err := db.NewSqliteStore(cfg.Mosaic.DbPath)
	if err != nil {
		panic(err)
	}

	if err := store.ApplyMigrations(migrations.GetMigrations()); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := utils.NewHTTPClient()
	galleryClient := gallery.NewClient(cfg.Gallery, client)
	loader := assets.NewLoader(client)
	cache := assets.NewCache(loader, cfg.Mosaic.StorageDir)
	notifier := alerts.NewNotifier(cfg.Pushover)

	events.Init()
	publish := func(data []byte) {
		events.Server.Publish(shared.EVENT_STREAM_DISPLAY, &sse.Event{Data: data})
	}

	session := display.NewSession(gallery.DefaultPreset())
	poller := display.NewPoller(session, galleryClient, cache, store, cfg.Gallery.ShareCode, publish, notifier.Send)

	// The initial gallery fetch is the one failure that blocks startup.
	// Everything after this point degrades gracefully instead.
	if err := poller.Prime(ctx); err != nil {
		slog.Error("Failed to reach the gallery service so the display can not start",
			slog.String("stack", err.Error()),
			slog.String("share_code", cfg.Gallery.ShareCode),
		)
		notifier.Send("Mosaic failed to start", fmt.Sprintf("The initial gallery fetch failed: %s", err))
		os.Exit(1)
	}

	generator := display.NewGenerator(session)
	prefetcher := display.NewPrefetcher(session, generator, cache, galleryClient.ResolvePhotoURL, cfg.Mosaic.PrefetchDepth)
	prefetcher.Prime(ctx)

	engine := display.NewEngine(session, prefetcher, cache, galleryClient.ResolvePhotoURL, store, publish)
	engine.SetInterval(time.Duration(cfg.Mosaic.UpdateIntervalSeconds) * time.Second)
	engine.SetFadeDuration(time.Duration(cfg.Mosaic.FadeMs) * time.Millisecond)

	jobScheduler, err := SetupInBackground(ctx, prefetcher, cache, poller)
	if err != nil {
		panic(err)
	}

	if cfg.Mosaic.BackgroundJobsEnabled {
		jobScheduler.Start()
		fmt.Println("Background jobs have started up in the background.")
	} else {
		fmt.Println("Background jobs are disabled.")
	}

	go engine.Run(ctx)

	router := RegisterRoutes(http.NewServeMux(), cfg, engine, poller, session, store)

	fmt.Printf("Mosaic is running at http://localhost:%d\n", cfg.Mosaic.Port)

	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Mosaic.Port), router); err != nil {
		fmt.Println(err)
		jobScheduler.Shutdown()
		os.Exit(1)
	}
}
