package app

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	"parley/pkg/api"
	"parley/pkg/api/auth"
	router "parley/pkg/api/router"
	"parley/pkg/config"
	"parley/pkg/config/banner"
	"parley/pkg/state/logger"
)

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "none" && a.commit != "" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" && a.buildDate != "" {
		verStr += " @ " + a.buildDate
	}
	banner.PrintWithEff(a.eff, verStr)
}

// readyzHandlerFast reports whether the node can take traffic.
func (a *App) readyzHandlerFast(ctx *fasthttp.RequestCtx) {
	if !a.db.Ready() {
		router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "not ready")
		return
	}
	if a.hwSensor != nil {
		if disk, _ := a.hwSensor.Alerts(); disk {
			router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "disk pressure")
			return
		}
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	_ = router.WriteJSON(ctx, map[string]string{"status": "ok", "version": ver})
}

// healthzHandlerFast handles the /healthz endpoint.
func (a *App) healthzHandlerFast(ctx *fasthttp.RequestCtx) {
	_ = router.WriteJSON(ctx, map[string]string{"status": "ok"})
}

func (a *App) securityConfig(cfg *config.Config) auth.SecConfig {
	sec := auth.SecConfig{
		AllowedOrigins: append([]string{}, cfg.Security.CORS.AllowedOrigins...),
		RPS:            cfg.Security.RateLimit.RPS,
		Burst:          cfg.Security.RateLimit.Burst,
		IPWhitelist:    append([]string{}, cfg.Security.IPWhitelist...),
		BackendKeys:    map[string]struct{}{},
		FrontendKeys:   map[string]struct{}{},
		AdminKeys:      map[string]struct{}{},
		JWTSecret:      cfg.Security.JWT.Secret,
		JWTIssuer:      cfg.Security.JWT.Issuer,
		JWTAudience:    cfg.Security.JWT.Audience,
		Users:          a.chat,
	}
	for _, k := range cfg.Security.APIKeys.Backend {
		sec.BackendKeys[k] = struct{}{}
	}
	for _, k := range cfg.Security.APIKeys.Frontend {
		sec.FrontendKeys[k] = struct{}{}
	}
	for _, k := range cfg.Security.APIKeys.Admin {
		sec.AdminKeys[k] = struct{}{}
	}
	return sec
}

// startHTTP builds and starts the fasthttp server, returning a channel that delivers errors.
func (a *App) startHTTP(_ context.Context) <-chan error {
	cfg := a.eff.Config

	r := router.New()
	r.GET("/healthz", a.healthzHandlerFast)
	r.GET("/readyz", a.readyzHandlerFast)
	api.RegisterRoutes(r, api.Deps{
		Chat:        a.chat,
		Blobs:       a.blobs,
		Checkpoints: a.checkpoints,
		Version:     a.version,
	})

	mw, stop := auth.AuthenticateRequestMiddleware(a.securityConfig(cfg))
	a.stopLimiters = stop
	handler := mw(r.Handler)

	// uploads are bounded by the blob limit, json bodies by the payload limit
	maxBody := cfg.Server.MaxPayloadSize.Int64()
	if b := a.blobs.MaxSize(); b > maxBody {
		maxBody = b
	}

	const (
		readBufferSize       = 64 * 1024
		readTimeout          = 30 * time.Second
		writeTimeout         = 30 * time.Second
		idleTimeout          = 30 * time.Second
		maxKeepaliveDuration = 2 * time.Minute
	)
	a.srvFast = &fasthttp.Server{
		Name:                 "parley",
		Handler:              handler,
		ReadBufferSize:       readBufferSize,
		MaxRequestBodySize:   int(maxBody),
		ReduceMemoryUsage:    true,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		MaxKeepaliveDuration: maxKeepaliveDuration,
	}

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Addr()
		if cert, key := cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile; cert != "" && key != "" {
			logger.Info("http_listen_tls", "addr", addr)
			errCh <- a.srvFast.ListenAndServeTLS(addr, cert, key)
			return
		}
		logger.Info("http_listen", "addr", addr)
		errCh <- a.srvFast.ListenAndServe(addr)
	}()
	return errCh
}
