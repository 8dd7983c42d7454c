package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/taskhub-server/auth"
	"github.com/jrsteele09/taskhub-server/internal/config"
	"github.com/jrsteele09/taskhub-server/jobs"
	"github.com/jrsteele09/taskhub-server/mail"
	"github.com/jrsteele09/taskhub-server/realtime"
	"github.com/jrsteele09/taskhub-server/roles"
	mongorolerepo "github.com/jrsteele09/taskhub-server/roles/mongorepo"
	"github.com/jrsteele09/taskhub-server/server"
	"github.com/jrsteele09/taskhub-server/sessions"
	mongosessionrepo "github.com/jrsteele09/taskhub-server/sessions/mongorepo"
	mongosettingsrepo "github.com/jrsteele09/taskhub-server/settings/mongorepo"
	"github.com/jrsteele09/taskhub-server/store/mongodb"
	"github.com/jrsteele09/taskhub-server/token"
	mongouserrepo "github.com/jrsteele09/taskhub-server/users/mongorepo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	c := config.New()
	setupLogging(c)

	if err := run(c); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func setupLogging(c config.EnvConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if config.IsDev(c) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongodb.Connect(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()
	db := mongoClient.Database()

	userRepo, err := mongouserrepo.New(ctx, db)
	if err != nil {
		return err
	}
	roleRepo, err := mongorolerepo.New(ctx, db)
	if err != nil {
		return err
	}
	sessionRepo, err := mongosessionrepo.New(ctx, db)
	if err != nil {
		return err
	}
	settingsRepo := mongosettingsrepo.New(db)

	if err := roles.EnsureDefaults(ctx, roleRepo); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := auth.EnsureAdmin(ctx, userRepo, roleRepo, c.GetBootstrapAdminEmail(), c.GetBootstrapAdminPassword()); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	secret := c.GetAccessTokenSecret()
	if secret == "" {
		if !config.IsDev(c) {
			return errors.New("ACCESS_TOKEN_SECRET is required outside DEV")
		}
		log.Warn().Msg("ACCESS_TOKEN_SECRET not set, using a random secret, tokens will not survive a restart")
		if secret, err = token.RandomSecret(32); err != nil {
			return err
		}
	}
	tokens, err := token.New(token.NewHMACSigner(secret),
		token.WithTokenExpiry(c.GetAccessTokenExpiry()),
		token.WithIssuer(c.GetBaseURL()),
	)
	if err != nil {
		return err
	}

	allowedOrigins := c.GetAllowedOrigins()
	hub := realtime.NewHub(realtime.WithCheckOrigin(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowedOrigins.IsAllowedOrigin(origin) || allowedOrigins.IsAllowedOrigin("*")
	}))
	defer hub.Close()

	store, err := sessions.NewStore(sessionRepo, tokens,
		sessions.WithMaxSessions(c.GetMaxSessionsPerUser()),
		sessions.WithListener(hub),
	)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(
		auth.Repos{Users: userRepo, Roles: roleRepo, Settings: settingsRepo},
		store,
		tokens,
		auth.WithMailer(mail.NewSender(c, c.GetPasswordResetExpiry())),
		auth.WithResetExpiry(c.GetPasswordResetExpiry()),
	)
	if err != nil {
		return err
	}

	scheduler, err := jobs.NewScheduler(store, userRepo, c)
	if err != nil {
		return err
	}
	scheduler.Start(ctx)

	handler, err := server.New(c, authService,
		server.Repos{Users: userRepo, Roles: roleRepo, Settings: settingsRepo},
		hub,
		server.WithHealthCheck(mongoClient),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Stop signal received")
	case err := <-serveErr:
		returnError = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := shutdown(shutdownCtx, httpServer); err != nil && returnError == nil {
		returnError = err
	}
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(ctx context.Context, server *http.Server) error {
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
