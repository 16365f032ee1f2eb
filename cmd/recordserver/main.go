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
	"github.com/jrsteele09/go-portal-session/internal/config"
	"github.com/jrsteele09/go-portal-session/internal/logger"
	"github.com/jrsteele09/go-portal-session/otp"
	"github.com/jrsteele09/go-portal-session/recordserver"
	"github.com/jrsteele09/go-portal-session/subscriptions"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running record server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Record server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.Load()
	logger.SetGlobal(logger.New(c.GetEnv(), os.Stderr, false))
	displayAppname(c.GetAppName())

	store, err := recordserver.OpenStore(c.GetRecordStoreFile(),
		recordserver.UsersCollection, otp.Collection, subscriptions.Collection)
	if err != nil {
		return fmt.Errorf("recordserver.OpenStore: %w", err)
	}
	rs := recordserver.New(c, store)
	if err := bootstrap(rs); err != nil {
		return err
	}

	server := &http.Server{Addr: c.GetPort(), Handler: rs}
	go listenAndServe(server)
	waitForStopSignal()
	returnError = shutdown(server)
	return returnError
}

func bootstrap(rs *recordserver.Server) error {
	if _, err := rs.SeedPlans(subscriptions.DefaultPlans()); err != nil {
		return fmt.Errorf("seeding pricing: %w", err)
	}
	password, err := rs.BootstrapAdmin(recordserver.DefaultAdminEmail)
	if err != nil {
		return fmt.Errorf("bootstrapping admin: %w", err)
	}
	if password != "" {
		fmt.Printf("Admin account %s created with password: %s\n", recordserver.DefaultAdminEmail, password)
		fmt.Println("This password is shown once.")
	}
	return nil
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("Record server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
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
