package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/dynamo"
	dynhttp "github.com/aretw0/dynamo/pkg/adapters/http"
	"github.com/aretw0/dynamo/pkg/commands"
	"github.com/aretw0/dynamo/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	wb := dynamo.New(dynamo.WithLifecycleHooks(metrics.Hooks()))
	owner := commands.NewOwner(commands.New(wb))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = owner.Run(ctx)
	}()

	srv := httptest.NewServer(dynhttp.NewHandler(owner,
		dynhttp.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv
}

type commandResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func post(t *testing.T, srv *httptest.Server, name string, params any) (int, commandResponse) {
	t.Helper()
	var body bytes.Buffer
	if params != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(params))
	}
	resp, err := http.Post(srv.URL+"/commands/"+name, "application/json", &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out commandResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestServer_HealthAndInfo(t *testing.T) {
	srv := newServer(t)

	var health map[string]string
	getJSON(t, srv, "/health", &health)
	assert.Equal(t, "ok", health["status"])

	var info map[string]string
	getJSON(t, srv, "/info", &info)
	assert.Equal(t, dynamo.Version, info["version"])
	assert.Equal(t, "0.5.0", info["format_version"])

	var cmds []map[string]any
	getJSON(t, srv, "/commands", &cmds)
	assert.Len(t, cmds, 17)
}

func TestServer_BuildRunInspect(t *testing.T) {
	srv := newServer(t)

	status, res := post(t, srv, commands.CreateNode, map[string]any{"kind": "Number", "x": 10, "y": 20})
	require.Equal(t, http.StatusOK, status, res.Error)
	var node struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(res.Result, &node))

	status, res = post(t, srv, commands.SetValue, map[string]any{"node": node.ID, "value": 7})
	require.Equal(t, http.StatusOK, status, res.Error)

	status, res = post(t, srv, commands.RunExpression, nil)
	require.Equal(t, http.StatusOK, status, res.Error)
	var run struct {
		Evaluated []string `json:"evaluated"`
		Cancelled bool     `json:"cancelled"`
	}
	require.NoError(t, json.Unmarshal(res.Result, &run))
	assert.Equal(t, []string{node.ID}, run.Evaluated)

	var ws struct {
		Kind  string `json:"kind"`
		Nodes []struct {
			ID     string `json:"id"`
			Value  any    `json:"value"`
			Status string `json:"status"`
			Result []any  `json:"result"`
		} `json:"nodes"`
	}
	getJSON(t, srv, "/workspace", &ws)
	assert.Equal(t, "home", ws.Kind)
	require.Len(t, ws.Nodes, 1)
	assert.Equal(t, 7.0, ws.Nodes[0].Value)
	assert.Equal(t, "clean", ws.Nodes[0].Status)
	assert.Equal(t, []any{7.0}, ws.Nodes[0].Result)

	resp, err := http.Get(srv.URL + "/workspace/document")
	require.NoError(t, err)
	defer resp.Body.Close()
	var doc bytes.Buffer
	_, err = doc.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, doc.String(), `<Param name="value" value="7">`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var metrics bytes.Buffer
	_, err = metrics.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, metrics.String(), `dynamo_runs_total{outcome="completed"} 1`)
}

func TestServer_CommandErrors(t *testing.T) {
	srv := newServer(t)

	status, res := post(t, srv, "Frobnicate", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, res.Error, "unknown command")

	status, _ = post(t, srv, commands.CreateNode, map[string]any{})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = post(t, srv, commands.Save, nil)
	assert.Equal(t, http.StatusConflict, status, "home was never saved")

	resp, err := http.Post(srv.URL+"/commands/"+commands.CreateNode, "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var defs []any
	getJSON(t, srv, "/definitions", &defs)
	assert.Empty(t, defs)
}

func TestServer_EventStream(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	status, _ := post(t, srv, commands.CreateNode, map[string]any{"kind": "Number"})
	require.Equal(t, http.StatusOK, status)

	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			assert.Contains(t, lines.Text(), `"type":"node_added"`)
			assert.Contains(t, lines.Text(), `"workspace":"Home"`)
			return
		}
	}
	t.Fatalf("stream ended without a graph event: %v", lines.Err())
}
