package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/rlombardo/audit-king/ai"
	"github.com/rlombardo/audit-king/app"
	"github.com/rlombardo/audit-king/config"
	"github.com/rlombardo/audit-king/database"
	"github.com/rlombardo/audit-king/httpx"
	"github.com/rlombardo/audit-king/log"
	"github.com/rlombardo/audit-king/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	bearerServer := httpx.NewBearerServer(db, cfg)

	var aiClient *ai.Client
	if cfg.OpenAIKey != "" {
		aiClient = ai.NewClient(cfg.OpenAIKey, cfg.OpenAIModel)
	} else {
		log.Warn("no -openai-key given, template extraction disabled")
	}

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
		AI:           aiClient,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
