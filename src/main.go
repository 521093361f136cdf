package main

import (
	"context"
	"errors"
	"eventhub/src/boot"
	"eventhub/src/config"
	"eventhub/src/lib"
	"eventhub/src/middlewares"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const apiPrefix = "/api"

var errMaintenance = errors.New("server is under maintenance")

func setupRouter(log *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.SecureHeaders)
	router.Use(middlewares.RequestLogger(log))
	router.Use(middlewares.Metrics)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func maintenanceModeMiddleware(g *gin.Engine, enabled bool) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		if enabled {
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": errMaintenance.Error()})
			return
		}
		ctx.Next()
	})
	return g
}

func apiGroup(g *gin.Engine) *gin.RouterGroup {
	return g.Group(apiPrefix)
}

func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	if cfg.IsLocal() {
		return cors.Default()
	}
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", middlewares.CorrelationHeader)
	cc.ExposeHeaders = append(cc.ExposeHeaders, middlewares.CorrelationHeader)
	appHost := regexp.QuoteMeta(cfg.AppHost)
	cc.AllowOriginFunc = func(origin string) bool {
		match, _ := regexp.MatchString("^"+appHost+"$", origin)
		return match
	}
	cc.AllowCredentials = true
	return cors.New(cc)
}

// buildRouter mounts every route group. Public and authenticated routes
// share the /api prefix.
func buildRouter(app *boot.App) *gin.Engine {
	router := setupRouter(app.Log)
	router.Use(corsMiddleware(app.Config))
	router = maintenanceModeMiddleware(router, app.Config.MaintenanceMode)

	public := apiGroup(router)
	authHandlers(public, app)
	publicEventHandlers(public, app)
	publicPaymentHandlers(public, app)

	authorized := apiGroup(router)
	authorized.Use(middlewares.Auth(app.DB, app.Config.JWT.Secret, app.Log))
	{
		authorized = meHandlers(authorized, app)
		authorized = eventHandlers(authorized, app)
		authorized = bookingHandlers(authorized, app)
		authorized = paymentHandlers(authorized, app)
	}

	admin := authorized.Group("/admin")
	admin.Use(middlewares.RequireAdmin)
	adminHandlers(admin, app)
	return router
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("error loading config: %s", err.Error())
	}
	log := lib.NewLogger(cfg)
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = log.Writer()
	gin.DefaultErrorWriter = log.WriterLevel(logrus.ErrorLevel)

	registerValidators()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := boot.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize application")
	}
	if err := app.Start(); err != nil {
		log.WithError(err).Fatal("failed to start background workers")
	}
	defer app.Shutdown()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           buildRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("error during server shutdown")
	}
}
