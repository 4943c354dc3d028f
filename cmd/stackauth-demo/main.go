// Command stackauth-demo serves a single protected endpoint, /api/me, that
// accepts Stack Exchange access tokens.  Browsers can log in through
// /auth/stackexchange/, which comes back to /auth/stackexchange/callback.
//
// Configuration comes from the environment; see config below and
// stackexchange.Options for the STACKEXCHANGE_* variables.  STACKEXCHANGE_KEY
// is required.
//
//	curl -H "Authorization: Bearer $TOKEN" localhost:8080/api/me
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sa "github.com/panyam/stackauth"
	"github.com/panyam/stackauth/cache"
	oa2 "github.com/panyam/stackauth/oauth2"
	"github.com/panyam/stackauth/stackexchange"
	"github.com/panyam/stackauth/stores"
	"github.com/panyam/stackauth/stores/fs"
)

type config struct {
	Addr          string            `env:"STACKAUTH_ADDR" envDefault:":8080"`
	DataDir       string            `env:"STACKAUTH_DATA_DIR" envDefault:"./data"`
	JWTSecretKey  string            `env:"STACKAUTH_JWT_SECRET"`
	LoginRedirect string            `env:"STACKAUTH_LOGIN_REDIRECT"`
	CacheTTL      time.Duration     `env:"STACKAUTH_CACHE_TTL" envDefault:"10m"`
	UseRedis      bool              `env:"STACKAUTH_USE_REDIS"`
	Redis         cache.RedisConfig `envPrefix:"STACKAUTH_REDIS_"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	profiles, err := newProfileCache(cfg)
	if err != nil {
		log.Fatal(err)
	}

	users := fs.NewFSUserStore(cfg.DataDir)
	channels := fs.NewFSChannelStore(cfg.DataDir)

	opts, err := stackexchange.LoadOptionsFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	opts.Logger = logger
	cached := cache.Bind(profiles)
	opts.SkipUserProfile = cached.Skip()
	opts.Verify = cached.Verifier(stores.ChannelVerifier(users, channels))

	strategy, err := stackexchange.New(opts)
	if err != nil {
		log.Fatal(err)
	}

	mw := (&sa.Middleware{
		Logger:          logger,
		FailureRedirect: cfg.LoginRedirect,
		Metrics:         sa.NewMetrics(prometheus.DefaultRegisterer),
	}).Use(strategy)

	var sessions *scs.SessionManager
	if cfg.JWTSecretKey != "" {
		sessions = scs.New()
		mw.Sessions = &sa.SessionIssuer{Session: sessions, JWTSecretKey: cfg.JWTSecretKey}
	}

	strategy.HandleLogin(func(w http.ResponseWriter, r *http.Request, res *sa.Result) {
		mw.CompleteLogin(strategy.Name(), w, r, res, oa2.CallbackURLFromRequest(r, "/api/me"))
	})

	r := mux.NewRouter()
	r.Handle("/api/me", mw.Authenticate(strategy.Name())(sa.MeHandler())).Methods(http.MethodGet, http.MethodPost)
	r.PathPrefix("/auth/stackexchange/").Handler(http.StripPrefix("/auth/stackexchange", strategy.Handler()))
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	var handler http.Handler = r
	if sessions != nil {
		handler = sessions.LoadAndSave(handler)
	}

	logger.Info("listening", "addr", cfg.Addr, "site", strategy.Site(), "profileURL", strategy.ProfileURL())
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}

func newProfileCache(cfg config) (cache.ProfileCache, error) {
	if !cfg.UseRedis {
		return cache.NewMemoryCache(cfg.CacheTTL), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return cache.NewRedisCache(ctx, cfg.Redis)
}
