package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"accord/internal/config"
)

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Anthropic.APIKey = "sk-ant-test"
	return cfg
}

func TestNewFailsWithoutCredentials(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	_, err = New(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing credential")
}

func TestNewBuildsFullStack(t *testing.T) {
	application, err := New(validConfig(t))
	require.NoError(t, err)
	require.NotNil(t, application.Engine)
	require.NotNil(t, application.Extractor)
	require.NotNil(t, application.Metrics)
}

func TestRouterServesHealthz(t *testing.T) {
	application, err := New(validConfig(t))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	application.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionOptionsFromConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Mode = "fast"
	cfg.Iterations = 2

	application, err := New(cfg)
	require.NoError(t, err)

	opts := application.SessionOptions()
	require.Equal(t, "fast", string(opts.Mode))
	require.Equal(t, 2, opts.Iterations)
}
