package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"

	"doorman/internal/adapters/aichecks"
	"doorman/internal/adapters/banlist"
	"doorman/internal/adapters/classifier"
	"doorman/internal/adapters/telegram"
	"doorman/internal/core/badmsg"
	"doorman/internal/core/textfilter"
	"doorman/internal/modkit"
	"doorman/internal/modkit/repokit"
	"doorman/internal/platform/clock"
	"doorman/internal/platform/config"
	"doorman/internal/platform/logger"
	"doorman/internal/platform/store"

	audmod "doorman/internal/services/audit/module"
	chdom "doorman/internal/services/challenge/domain"
	chmod "doorman/internal/services/challenge/module"
	modmod "doorman/internal/services/moderation/module"
	modsvc "doorman/internal/services/moderation/service"
	susmod "doorman/internal/services/suspicion/module"
	trustmod "doorman/internal/services/trust/module"
)

// settings is everything the bot refuses to start without
type settings struct {
	Token       string `validate:"required"`
	AdminChatID int64  `validate:"required"`
	PGURL       string `validate:"omitempty,uri"`
	CHAddr      string `validate:"omitempty,hostname_port"`
}

func main() {
	root := config.New()
	l := logger.Get()

	tgOpts := telegram.FromConfig(root)
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	modCfg := root.Prefix("MODERATION_")

	pgURL := pgCfg.MayString("DBURL", "")
	chAddr := chCfg.MayString("ADDR", "")

	if err := validator.New().Struct(settings{
		Token:       tgOpts.Token,
		AdminChatID: tgOpts.AdminChatID,
		PGURL:       pgURL,
		CHAddr:      chAddr,
	}); err != nil {
		l.Fatal().Err(err).Msg("invalid settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		AppName: "doorman-bot",
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
	if st.PG != nil {
		repokit.MustPing(ctx, "postgres", st.PG.(store.Pinger))
	}

	clk := clock.System{}
	sched := clock.NewScheduler(clk)
	go func() { _ = sched.Run(ctx) }()

	deps := modkit.Deps{
		Log:   *l,
		Cfg:   root,
		PG:    st.PG,
		CH:    st.CH,
		Clock: clk,
		Sched: sched,
	}

	stop2, err := textfilter.LoadStopWords(modCfg.MayString("STOPWORDS_PATH", "data/stop-words.txt"))
	if err != nil {
		l.Warn().Err(err).Msg("stop words unavailable, check disabled")
		stop2 = textfilter.NewStopWords(nil)
	}
	bad := badmsg.Load(*l, modCfg.MayString("BADMSG_PATH", "data/bad-messages.txt"), badmsg.DefaultCap)

	trustMod := trustmod.New(deps, trustmod.Options{})
	trust := trustMod.Ports().(trustmod.Ports).Store

	bot, err := telegram.New(telegram.Deps{
		Log:     *l,
		Trust:   trust,
		BadMsgs: bad,
	}, tgOpts)
	if err != nil {
		l.Fatal().Err(err).Msg("bot dial failed")
	}

	chMod := chmod.New(deps, chmod.Options{}, telegram.NewEnforcer(bot, trust))
	chMod.Service().OnExpired = func(c chdom.Challenge) {
		bot.CleanupPuzzle(c.ChatID, c.UserID)
	}
	challenges := chMod.Ports().(chmod.Ports).Manager

	susMod := susmod.New(deps, susmod.Options{})
	audMod := audmod.New(deps, audmod.Options{})
	go audMod.Service().Run(ctx)

	sdeps := modsvc.Deps{
		Trust:      trust,
		Challenges: challenges,
		Suspicion:  susMod.Ports().(susmod.Ports).Tracker,
		StopWords:  stop2,
		BadMsgs:    bad,
		Audit:      audMod.Ports().(audmod.Ports).Recorder,
	}
	if blCfg := root.Prefix("BANLIST_"); blCfg.MayBool("ENABLED", true) {
		sdeps.Blacklist = banlist.New(*l, clk, banlist.Options{
			BaseURL:  blCfg.MayString("URL", ""),
			CacheTTL: blCfg.MayDuration("CACHE_TTL", 0),
		})
	}
	if url := root.Prefix("CLASSIFIER_").MayString("URL", ""); url != "" {
		sdeps.Classifier = classifier.New(*l, classifier.Options{BaseURL: url})
	}
	if aiCfg := root.Prefix("OPENAI_"); aiCfg.MayString("API_KEY", "") != "" {
		sdeps.Analyzer = aichecks.New(*l, aichecks.Options{
			APIKey:  aiCfg.MustString("API_KEY"),
			BaseURL: aiCfg.MayString("BASE_URL", ""),
			Model:   aiCfg.MayString("MODEL", ""),
		})
	}

	modMod := modmod.New(deps, modmod.Options{}, sdeps)
	bot.Bind(modMod.Ports().(modmod.Ports).Pipeline, challenges)

	l.Info().Msg("doorman started")
	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		l.Fatal().Err(err).Msg("bot stopped")
	}
}
