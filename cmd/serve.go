package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/pipeline"
	"github.com/sells-group/intake-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the intake HTTP server",
	Long:  "Accepts complaint submissions over HTTP and exposes processed cases for inspection.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Pipeline, env.Store),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(p *pipeline.Pipeline, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/intake", func(w http.ResponseWriter, r *http.Request) {
		var intake model.Intake
		if err := json.NewDecoder(r.Body).Decode(&intake); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		c, err := p.Run(r.Context(), &intake, nil)
		if err != nil && (c == nil || c.Result == nil) {
			zap.L().Error("intake processing failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "intake processing failed"})
			return
		}
		// Error results are still results: the caller gets the case id and
		// the manual-review message.
		writeJSON(w, http.StatusOK, c.Result)
	})

	r.Get("/cases", func(w http.ResponseWriter, r *http.Request) {
		filter := store.CaseFilter{
			Status:  model.CaseStatus(r.URL.Query().Get("status")),
			Company: r.URL.Query().Get("company"),
			Limit:   50,
		}
		cases, err := st.ListCases(r.Context(), filter)
		if err != nil {
			zap.L().Error("list cases failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list cases failed"})
			return
		}
		writeJSON(w, http.StatusOK, cases)
	})

	r.Get("/cases/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		sc, err := st.GetCase(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil || sc == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "case not found"})
			return
		}
		writeJSON(w, http.StatusOK, sc)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
