package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"office-forwarding/internal/auth"
	"office-forwarding/internal/httpapi"
	"office-forwarding/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// webhookMethods: Twilio calls back with POST by default, but a Studio
// flow or a Number's method setting can switch a stage to GET.
var webhookMethods = []string{http.MethodGet, http.MethodPost}

type routeDeps struct {
	Handlers httpapi.Handlers
	Signer   *auth.Signer
	Limiter  *httpapi.ClientLimiter

	// ProviderAuth validates X-Twilio-Signature; nil when disabled.
	ProviderAuth gin.HandlerFunc

	VoicemailPath string
	NotifierPath  string
}

// newEngine builds the gin engine with the shared middleware. Only the
// listed proxies may set the client address through X-Forwarded-For.
func newEngine(log *slog.Logger, trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	return r, nil
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal/callflow.
func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/healthz", httpapi.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks (public). The voice stages must always answer with
	// TwiML, so they are refused with a spoken error instead of a 429.
	voice := r.Group("/")
	sms := r.Group("/")
	if d.Limiter != nil {
		voice.Use(httpapi.Limit(d.Limiter, d.Handlers.Throttled))
		sms.Use(httpapi.Limit(d.Limiter, nil))
	}
	if d.ProviderAuth != nil {
		voice.Use(d.ProviderAuth)
		sms.Use(d.ProviderAuth)
	}

	voice.Match(webhookMethods, "/forwarder", d.Handlers.Forward)
	voice.Match(webhookMethods, d.VoicemailPath,
		auth.RequireSignedTarget(d.Signer, auth.StageVoicemail),
		d.Handlers.Fallback,
	)
	sms.Match(webhookMethods, d.NotifierPath,
		auth.RequireSignedTarget(d.Signer, auth.StageNotifier),
		d.Handlers.Notify,
	)
}
