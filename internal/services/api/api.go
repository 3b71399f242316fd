// Package api mounts the admin HTTP endpoints
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"doorman/internal/platform/config"
	perr "doorman/internal/platform/errors"
	"doorman/internal/platform/logger"
	phttp "doorman/internal/platform/net/http"
	pmw "doorman/internal/platform/net/middleware"
	"doorman/internal/platform/store"
	trustdom "doorman/internal/services/trust/domain"
)

// Options wires the admin API
type Options struct {
	Config config.Conf
	Log    logger.Logger

	// Trust may be nil when the API runs without Postgres
	Trust trustdom.StorePort

	// CH may be nil when ClickHouse is not configured
	CH store.Clickhouse
}

type api struct {
	log   logger.Logger
	trust trustdom.StorePort
	ch    store.Clickhouse
}

// Mount attaches middleware and routes to the mux
func Mount(mux *chi.Mux, opts Options) {
	a := &api{log: opts.Log, trust: opts.Trust, ch: opts.CH}

	mux.Use(chimw.RequestID)
	mux.Use(pmw.RecoverJSON(opts.Log))
	mux.Use(pmw.AccessLog(opts.Log, 500*time.Millisecond))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.Config.MayCSV("CORS_ORIGINS", []string{"*"}),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		MaxAge:         300,
	}))

	mux.Get("/healthz", a.health)
	mux.Route("/api", func(r chi.Router) {
		r.Get("/stats", a.stats)
		r.Get("/stats/{chatID}", a.chatStats)
		r.Get("/trust/{chatID}/{userID}", a.trustRecord)
		r.Post("/approve/{chatID}/{userID}", a.approve)
		r.Post("/ban/{chatID}/{userID}", a.ban)
		r.Delete("/trust/{chatID}/{userID}", a.cleanup)
	})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	phttp.RespondOK(w, r, map[string]string{"status": "ok"})
}

func pathID(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, perr.InvalidArgf("%s must be an integer", name)
	}
	return v, nil
}

func pair(r *http.Request) (chatID, userID int64, err error) {
	if chatID, err = pathID(r, "chatID"); err != nil {
		return 0, 0, err
	}
	if userID, err = pathID(r, "userID"); err != nil {
		return 0, 0, err
	}
	return chatID, userID, nil
}

func (a *api) trustRecord(w http.ResponseWriter, r *http.Request) {
	if a.trust == nil {
		phttp.RespondError(w, r, perr.Unavailablef("trust store not configured"))
		return
	}
	chatID, userID, err := pair(r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	rec, err := a.trust.Get(r.Context(), chatID, userID)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, rec)
}

func (a *api) approve(w http.ResponseWriter, r *http.Request) {
	a.trustOp(w, r, func(ctx context.Context, chatID, userID int64) error {
		return a.trust.Approve(ctx, chatID, userID)
	})
}

func (a *api) ban(w http.ResponseWriter, r *http.Request) {
	a.trustOp(w, r, func(ctx context.Context, chatID, userID int64) error {
		return a.trust.Ban(ctx, chatID, userID, nil)
	})
}

func (a *api) cleanup(w http.ResponseWriter, r *http.Request) {
	a.trustOp(w, r, func(ctx context.Context, chatID, userID int64) error {
		return a.trust.Cleanup(ctx, chatID, userID)
	})
}

func (a *api) trustOp(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, int64) error) {
	if a.trust == nil {
		phttp.RespondError(w, r, perr.Unavailablef("trust store not configured"))
		return
	}
	chatID, userID, err := pair(r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	if err := op(r.Context(), chatID, userID); err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondNoContent(w, r)
}
