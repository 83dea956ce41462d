package host

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/srand/jolt/workforce/pkg/channel"
	"github.com/srand/jolt/workforce/pkg/provider"
)

// SessionInfo is the JSON description of a session.
type SessionInfo struct {
	Id      string       `json:"id"`
	Workers []WorkerInfo `json:"workers"`
}

type WorkerInfo struct {
	Id       string `json:"id"`
	Provider string `json:"provider"`
}

func (s *Session) Info() SessionInfo {
	info := SessionInfo{Id: s.id, Workers: []WorkerInfo{}}
	for _, w := range s.Workers() {
		info.Workers = append(info.Workers, WorkerInfo{Id: w.id, Provider: w.providerId})
	}
	return info
}

// NewHttpHandler installs the host endpoints:
//
//	GET  /providers           provider listing
//	GET  /providers/:id       a single provider
//	GET  /sessions            connected workforces and their workers
//	POST /sessions/:id/stop   ask a workforce to stop
//	GET  /workforce           websocket channel
//	GET  /metrics             Prometheus metrics
func NewHttpHandler(h *Host, r *echo.Echo) {
	r.GET("/providers", func(c echo.Context) error {
		return c.JSON(http.StatusOK, h.registry.Describe())
	})

	r.GET("/providers/:id", func(c echo.Context) error {
		p, err := h.registry.Get(c.Param("id"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		return c.JSON(http.StatusOK, provider.Describe(p))
	})

	r.GET("/sessions", func(c echo.Context) error {
		infos := []SessionInfo{}
		for _, s := range h.Sessions() {
			infos = append(infos, s.Info())
		}
		return c.JSON(http.StatusOK, infos)
	})

	r.POST("/sessions/:id/stop", func(c echo.Context) error {
		for _, s := range h.Sessions() {
			if s.id == c.Param("id") {
				h.Stop(s)
				return c.NoContent(http.StatusAccepted)
			}
		}
		return c.String(http.StatusNotFound, "No such session")
	})

	r.GET("/workforce", func(c echo.Context) error {
		ws, err := channel.AcceptWebsocket(c.Response(), c.Request())
		if err != nil {
			// Accept has already written the error response.
			return nil
		}
		h.Serve(c.Request().Context(), ws)
		return nil
	})

	r.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
}
