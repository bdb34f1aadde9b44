// Command server runs the duotaire room server: it serves the websocket
// endpoint that create_room/join_room/find_match and the game intents
// flow through, plus small observability endpoints: / and /health report
// the live room count and uptime, and /stats reads the game history ledger.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"duotaire/internal/matchmaking"
	"duotaire/internal/obslog"
	"duotaire/internal/registry"
	"duotaire/internal/statslog"
	"duotaire/internal/transport"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			// absence of a .env file is expected in most deployments.
		}
	}

	if err := obslog.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")); err != nil {
		panic(err)
	}
	defer obslog.Sync()
	log := obslog.L()

	dbPath := os.Getenv("STATSLOG_PATH")
	if dbPath == "" {
		dbPath = "./duotaire_stats.db"
	}
	history, err := statslog.Open(dbPath)
	if err != nil {
		log.Fatal("failed to open history ledger", zap.Error(err))
	}
	defer history.Close()

	hub := transport.NewHub(log)
	queue := matchmaking.New(hub.IsAlive, log)
	reg := registry.New(log)
	stopSweeper := reg.StartSweeper(registry.SweepInterval)
	defer stopSweeper()

	srv := transport.NewServer(hub, reg, queue, history, log)
	startedAt := time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/", rootHandler(reg, startedAt))
	mux.HandleFunc("/ws", srv.HandleWS)
	mux.HandleFunc("/health", healthHandler(reg, startedAt))
	mux.HandleFunc("/stats", statsHandler(history))

	port := os.Getenv("PORT")
	if port == "" {
		port = "2567"
	}

	log.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func healthHandler(reg *registry.Registry, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"rooms":     reg.Count(),
			"timestamp": time.Now().UTC(),
			"uptime":    time.Since(startedAt).String(),
		})
	}
}

// rootHandler serves the same summary as /health at the bare root path,
// per the observability side-channel's documented shape.
func rootHandler(reg *registry.Registry, startedAt time.Time) http.HandlerFunc {
	return healthHandler(reg, startedAt)
}

func statsHandler(history *statslog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("player")
		w.Header().Set("Content-Type", "application/json")

		if name != "" {
			games, wins, err := history.PlayerWinRate(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"player": name, "games": games, "wins": wins})
			return
		}

		recent, err := history.RecentResults(25)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(recent)
	}
}
