package atlasexplorer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/evergreen-ci/gimlet"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolvesGateway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, apimodels.RouteGatewayByChannel, r.URL.Path)
		assert.Equal(t, "key123", r.Header.Get(apimodels.APIKeyHeader))
		gimlet.WriteJSON(w, apimodels.GatewayEndpoint{Endpoint: "https://gw.example.com"})
	}))
	defer srv.Close()
	t.Setenv(GlobalAPIEnvVar, srv.URL)

	a, err := New(ctx, "key123", "release", "us-west-2", false)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "https://gw.example.com", a.Gateway())
	assert.Equal(t, "release", a.Settings().Channel)
	assert.False(t, a.Verbose())
}

func TestNewFailsWithoutGateway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gimlet.WriteJSON(w, apimodels.GatewayEndpoint{})
	}))
	defer srv.Close()
	t.Setenv(GlobalAPIEnvVar, srv.URL)

	_, err := New(ctx, "key123", "release", "mars-east-1", false)
	assert.True(t, errors.Is(err, ErrGatewayUnresolved))
}

func TestNewRejectsEmptyCredentials(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := New(ctx, "", "release", "us-west-2", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key must not be empty")
}

func TestNewFromEnvironment(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gimlet.WriteJSON(w, apimodels.GatewayEndpoint{Endpoint: "https://gw.example.com"})
	}))
	defer srv.Close()
	t.Setenv(GlobalAPIEnvVar, srv.URL)
	t.Setenv(ConfigEnvVar, "key123:release:us-west-2")

	a, err := NewFromEnvironment(ctx, true)
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.Verbose())
	assert.Equal(t, "key123", a.Settings().APIKey)
}

func TestGlobalAPIOverride(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		t.Setenv(GlobalAPIEnvVar, "")
		assert.Equal(t, DefaultGlobalAPI, GlobalAPI())
	})
	t.Run("Override", func(t *testing.T) {
		t.Setenv(GlobalAPIEnvVar, "http://localhost:8080")
		assert.Equal(t, "http://localhost:8080", GlobalAPI())
	})
}
