package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"office-forwarding/internal/assets"
	"office-forwarding/internal/auth"
	"office-forwarding/internal/callflow"
	"office-forwarding/internal/config"
	"office-forwarding/internal/httpapi"
	"office-forwarding/internal/prompts"
	"office-forwarding/internal/routing"
	"office-forwarding/internal/telephony"
	"office-forwarding/pkg/logger"
	"office-forwarding/pkg/utils"

	"github.com/gin-gonic/gin"
)

const smsGuardPrefix = "office-forwarding:voicemail-sms:"

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closeStore, err := openAssetStore(rootCtx, cfg)
	if err != nil {
		log.Error("asset store init failed", "source", cfg.Assets.Source, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	catalog := prompts.New(cfg.Flow.PromptVoice, cfg.Flow.ContactHint)
	signer := auth.NewSigner(cfg.Callbacks.SigningSecret, "office-forwarding")

	notifier := &callflow.Notifier{
		Sender:  telephony.NewTwilioMessenger(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken),
		Prompts: catalog,
	}
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		notifier.Guard = utils.NewRedisClaimGuard(rdb, smsGuardPrefix, cfg.Redis.DedupeTTL)
	}

	h := httpapi.Handlers{
		Forwarder: &callflow.Forwarder{
			Router:        routing.NewAssetEngine(store, cfg.Assets.RoutingPath),
			Prompts:       catalog,
			WhisperURL:    cfg.Flow.WhisperPromptURL,
			VoicemailPath: cfg.Flow.VoicemailPath,
			Signer:        signer,
		},
		Voicemail: &callflow.Voicemail{
			Prompts:      catalog,
			NotifierPath: cfg.Flow.NotifierPath,
			Signer:       signer,
		},
		Notifier: notifier,
		Prompts:  catalog,
	}

	limits := httpapi.DefaultLimitConfig()
	limits.PerSecond = cfg.RateLimit.PerSecond
	limits.Burst = cfg.RateLimit.Burst
	limiter := httpapi.NewClientLimiter(limits)
	defer limiter.Close()

	deps := routeDeps{
		Handlers:      h,
		Signer:        signer,
		Limiter:       limiter,
		VoicemailPath: cfg.Flow.VoicemailPath,
		NotifierPath:  cfg.Flow.NotifierPath,
	}
	if cfg.Twilio.ValidateSignature {
		deps.ProviderAuth = telephony.RequireTwilioSignature(cfg.Twilio.AuthToken, cfg.App.PublicBaseURL)
	}

	// Gin router
	r, err := newEngine(log, cfg.App.TrustedProxies)
	if err != nil {
		log.Error("router init failed", "err", err)
		os.Exit(1)
	}
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second, // Twilio gives up on a webhook after 15s.
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening",
			"addr", srv.Addr,
			"asset_source", cfg.Assets.Source,
			"callback_signing", signer.Enabled(),
			"twilio_signature", cfg.Twilio.ValidateSignature,
			"sms_guard", cfg.RedisEnabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// openAssetStore returns the routing asset backend selected by ASSET_SOURCE.
func openAssetStore(ctx context.Context, cfg config.Config) (assets.Store, func(), error) {
	if cfg.Assets.Source != config.AssetSourcePostgres {
		return assets.NewDirStore(os.DirFS(cfg.Assets.Dir)), func() {}, nil
	}

	db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.DBPool{})
	if err != nil {
		return nil, nil, err
	}
	return assets.NewPostgresStore(db), func() { _ = db.Close() }, nil
}
