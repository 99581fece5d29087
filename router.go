package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	hmacext "github.com/alexellis/hmac/v2"
	"github.com/rs/cors"

	"github.com/galleryscreen/mosaic/config"
	"github.com/galleryscreen/mosaic/db"
	"github.com/galleryscreen/mosaic/display"
	"github.com/galleryscreen/mosaic/events"
	"github.com/galleryscreen/mosaic/models"
	"github.com/galleryscreen/mosaic/shared"
	"github.com/galleryscreen/mosaic/utils"
)

func renderJSONMessage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	res := map[string]string{"message": message}
	json.NewEncoder(w).Encode(res)
}

func controlAuthorised(cfg config.Config, w http.ResponseWriter, r *http.Request) bool {
	if cfg.Mosaic.ControlToken == "" {
		renderJSONMessage(w, "This endpoint is misconfigured and can not be used currently")
		return false
	}
	if r.URL.Query().Get("token") != cfg.Mosaic.ControlToken {
		renderJSONMessage(w, "Your request was not authorized")
		return false
	}
	return true
}

func RegisterRoutes(mux *http.ServeMux, cfg config.Config, engine *display.Engine, poller *display.Poller, session *display.Session, store db.Store) http.Handler {

	events.Server.CreateStream(shared.EVENT_STREAM_DISPLAY)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "Welcome to Mosaic, a perpetual collage engine for event galleries.\nYou can find the source code on <a href=\"https://github.com/galleryscreen/mosaic\">Github</a>\n")
	})

	mux.HandleFunc("/static/", func(w http.ResponseWriter, r *http.Request) {
		tile := strings.ReplaceAll(r.URL.Path, "/static/", "")
		// tile.<xxhash of asset url>.jpeg
		tileSegments := strings.Split(tile, ".")
		if len(tileSegments) != 3 || tileSegments[0] != "tile" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		key := tileSegments[1]
		extension := tileSegments[2]
		image, err := utils.LoadTile(cfg.Mosaic.StorageDir, key, extension)
		if err != nil {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31622400")
		w.Header().Set("Content-Type", fmt.Sprintf("image/%s", extension))
		w.Write(image)
	})

	mux.HandleFunc("/api/v1", func(w http.ResponseWriter, r *http.Request) {
		renderJSONMessage(w, "This is the base of Mosaic's display API")
	})

	mux.HandleFunc("/api/v1/display", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(engine.Snapshot())
	})

	mux.HandleFunc("/api/v1/pool", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"pool_size":        session.PoolSize(),
			"photo_ids":        session.PhotoIDs(),
			"poll_interval_ms": display.PollInterval(session.PoolSize()).Milliseconds(),
		})
	})

	mux.HandleFunc("/api/v1/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		results, err := store.GetRecentTransitions(20)
		if err != nil {
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		response := []models.ResponseTransition{}
		for _, transition := range results {
			response = append(response, models.ResponseTransition{
				OccurredAt: time.Unix(transition.OccurredAt, 0).Format(time.RFC3339),
				Cursor:     transition.Cursor,
				PhotoIDs:   strings.Split(transition.PhotoIDs, ","),
			})
		}
		json.NewEncoder(w).Encode(response)
	})

	mux.HandleFunc("/api/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&events.Sessions{
			SessionsSeen:   events.SessionsSeen.Load(),
			ActiveSessions: events.ActiveSessions.Load(),
		})
	})

	mux.HandleFunc("/api/v1/display/pause", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		if !controlAuthorised(cfg, w, r) {
			return
		}
		engine.Pause()
		renderJSONMessage(w, "Display rotation is paused")
	})

	mux.HandleFunc("/api/v1/display/resume", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		if !controlAuthorised(cfg, w, r) {
			return
		}
		engine.Resume()
		renderJSONMessage(w, "Display rotation has resumed")
	})

	mux.HandleFunc("/api/v1/display/interval", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		if !controlAuthorised(cfg, w, r) {
			return
		}
		seconds, err := strconv.Atoi(r.URL.Query().Get("seconds"))
		if err != nil || seconds <= 0 {
			renderJSONMessage(w, "A positive number of seconds must be provided")
			return
		}
		applied := engine.SetInterval(time.Duration(seconds) * time.Second)
		renderJSONMessage(w, fmt.Sprintf("Update interval set to %s", applied))
	})

	mux.HandleFunc("/api/v1/gallery/webhook", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if cfg.Gallery.WebhookSecret == "" {
			json.NewEncoder(w).Encode(map[string]string{"error": "this endpoint is not properly configured"})
			return
		}

		signature := r.Header.Get("X-Gallery-Signature")
		if signature == "" {
			json.NewEncoder(w).Encode(map[string]string{"error": "no signature was provided"})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			json.NewEncoder(w).Encode(map[string]string{"error": "failed to read request body as part of signature validation"})
			return
		}

		if err := hmacext.Validate(body, fmt.Sprintf("sha256=%s", signature), cfg.Gallery.WebhookSecret); err != nil {
			slog.With(slog.Any("error", err)).Error("Failed signature validation")
			json.NewEncoder(w).Encode(map[string]string{"error": "signature failed validation"})
			return
		}

		poller.PollNow()
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	})

	mux.HandleFunc("/events", events.Server.ServeHTTP)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Origin, Content-Type, Accept"},
	})

	handler := c.Handler(mux)

	return handler
}
