package host

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/srand/jolt/workforce/pkg/channel"
	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/provider"
	"github.com/srand/jolt/workforce/pkg/utils"
	"github.com/srand/jolt/workforce/pkg/workforce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpServer(t *testing.T) (*Host, *httptest.Server) {
	t.Helper()

	registry := provider.NewRegistry()
	p := workforce.NewWorkerProvider("gpu-1", workforce.Attributes{"label": "gpu"})
	require.NoError(t, registry.Add(p))
	p.HandleMessage(protocol.ProviderMessage{Type: protocol.ProviderAvailable})

	h := New(registry, nil)
	h.SetRuntime("gpu-1", PingPongRuntime)

	r := echo.New()
	r.HideBanner = true
	r.Use(utils.HttpLogger)
	NewHttpHandler(h, r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return h, srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHttpProviders(t *testing.T) {
	_, srv := httpServer(t)

	status, body := get(t, srv.URL+"/providers")
	assert.Equal(t, http.StatusOK, status)

	var infos []provider.Info
	require.NoError(t, json.Unmarshal([]byte(body), &infos))
	assert.Equal(t, []provider.Info{
		{Id: "gpu-1", Attributes: workforce.Attributes{"label": "gpu"}, Available: true},
	}, infos)

	status, _ = get(t, srv.URL+"/providers/gpu-1")
	assert.Equal(t, http.StatusOK, status)

	status, _ = get(t, srv.URL+"/providers/nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHttpWorkforce(t *testing.T) {
	h, srv := httpServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch, err := channel.DialWebsocket(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/workforce")
	require.NoError(t, err)
	defer ch.Close()

	events := make(chan workforce.Event, 10)
	wf, err := workforce.New(ch, h.Registry(), workforce.Options{})
	require.NoError(t, err)
	wf.On(func(e workforce.Event) { events <- e })
	go wf.Run(ctx)

	next := func() workforce.Event {
		select {
		case e := <-events:
			return e
		case <-ctx.Done():
			require.FailNow(t, "timed out")
		}
		return nil
	}

	require.NoError(t, wf.Populate(h.Registry().Lookup("gpu-1")))
	added, ok := next().(workforce.WorkerAddedEvent)
	require.True(t, ok)

	require.NoError(t, added.Worker.Send("ping"))
	msg, ok := next().(workforce.WorkerMessageEvent)
	require.True(t, ok)
	assert.JSONEq(t, `"pong"`, string(msg.Payload))

	status, body := get(t, srv.URL+"/sessions")
	assert.Equal(t, http.StatusOK, status)
	var sessions []SessionInfo
	require.NoError(t, json.Unmarshal([]byte(body), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, []WorkerInfo{{Id: added.Worker.Id(), Provider: "gpu-1"}}, sessions[0].Workers)

	status, body = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `jolt_workforce_host_workers_spawned_total{provider="gpu-1"} 1`)
	assert.Contains(t, body, "jolt_workforce_host_sessions 1")

	resp, err := http.Post(srv.URL+"/sessions/"+sessions[0].Id+"/stop", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Stopping kills a workforce without a stop handler.
	select {
	case <-wf.Done():
	case <-ctx.Done():
		require.FailNow(t, "workforce not stopped")
	}

	assert.Eventually(t, func() bool { return len(h.Sessions()) == 0 }, 5*time.Second, 10*time.Millisecond)

	resp, err = http.Post(srv.URL+"/sessions/"+sessions[0].Id+"/stop", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
