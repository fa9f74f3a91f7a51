package elastic

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/SteelMorgan/logdoc/internal/retry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeNode(t *testing.T, clusterName string) Settings {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name":"node-1","cluster_name":%q,"version":{"number":"8.15.0"},"tagline":"You Know, for Search"}`, clusterName)
	}))
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	s, err := NewSettings("logs", Host{Host: host, Port: port})
	require.NoError(t, err)
	return s
}

func TestNewClient(t *testing.T) {
	settings := fakeNode(t, "logs")
	var buf bytes.Buffer

	client, err := NewClient(context.Background(), settings, retry.DefaultConfig(), zerolog.New(&buf))
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Contains(t, buf.String(), "Connected to Elasticsearch")
	assert.NotContains(t, buf.String(), "unexpected name")
}

func TestNewClient_ClusterNameMismatch(t *testing.T) {
	settings := fakeNode(t, "staging")
	var buf bytes.Buffer

	_, err := NewClient(context.Background(), settings, retry.DefaultConfig(), zerolog.New(&buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "unexpected name")
	assert.Contains(t, buf.String(), `"actual":"staging"`)
}

func TestNewClient_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	settings, err := NewSettings("logs", Host{Host: "127.0.0.1", Port: port})
	require.NoError(t, err)

	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 1
	_, err = NewClient(context.Background(), settings, cfg, zerolog.Nop())
	assert.Error(t, err)
}
