package main

import (
	"context"
	"os/signal"
	"syscall"

	"doorman/internal/modkit"
	"doorman/internal/platform/clock"
	"doorman/internal/platform/config"
	"doorman/internal/platform/logger"
	phttp "doorman/internal/platform/net/http"
	"doorman/internal/platform/store"

	"doorman/internal/services/api"
	trustmod "doorman/internal/services/trust/module"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("ADMIN_API_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgURL := pgCfg.MayString("DBURL", "")
	chAddr := chCfg.MayString("ADDR", "")

	st, err := store.Open(ctx, store.Config{
		AppName: "doorman-admin",
		PG: store.PGConfig{
			Enabled:     pgURL != "",
			URL:         pgURL,
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled: chAddr != "",
			Addr:    chAddr,
			DB:      chCfg.MayString("DB", "doorman"),
			User:    chCfg.MayString("USER", "default"),
			Pass:    chCfg.MayString("PASS", ""),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.Deps{
		Log:   *l,
		Cfg:   root,
		PG:    st.PG,
		CH:    st.CH,
		Clock: clock.System{},
	}

	opts := api.Options{Config: apiCfg, Log: *l, CH: st.CH}
	if st.PG != nil {
		opts.Trust = trustmod.New(deps, trustmod.Options{}).Ports().(trustmod.Ports).Store
	}

	srv := phttp.NewServer(apiCfg)
	api.Mount(srv.Mux(), opts)

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
