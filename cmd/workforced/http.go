package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/srand/jolt/workforce/pkg/host"
	"github.com/srand/jolt/workforce/pkg/log"
	"github.com/srand/jolt/workforce/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

// Serves the host HTTP API and websocket channels until ctx is cancelled.
func serveHttp(ctx context.Context, h *host.Host, uri string) error {
	addr, err := utils.ParseHttpUrl(uri)
	if err != nil {
		return err
	}

	log.Info("Listening on http", addr)

	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.StdLogger = stdlog.New(log.NewLogWriter(log.DebugLevel), "", 0)
	r.Use(utils.HttpLogger)
	r.Add(echo.GET, "/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))

	host.NewHttpHandler(h, r)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		r.Shutdown(shutdownCtx)
	}()

	if err := r.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
