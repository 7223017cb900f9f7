package readiness

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReady(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterComponent("alpha")
	registry.RegisterComponent("beta")

	assert.False(t, registry.Ready())

	registry.SetReady("alpha")
	assert.False(t, registry.Ready())

	registry.SetReady("beta")
	assert.True(t, registry.Ready())
}

func TestRegisterComponentTwicePanics(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterComponent("alpha")
	assert.Panics(t, func() { registry.RegisterComponent("alpha") })
}

func TestRegistriesAreIndependent(t *testing.T) {
	first := NewRegistry()
	second := NewRegistry()

	first.RegisterComponent("alpha")
	second.RegisterComponent("alpha")

	first.SetReady("alpha")
	assert.True(t, first.Ready())
	assert.False(t, second.Ready())
}

func TestHandler(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterComponent("alpha")

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	rec := httptest.NewRecorder()
	registry.Handler(rec, req)
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Contains(t, rec.Body.String(), "alpha\tfalse")

	registry.SetReady("alpha")
	rec = httptest.NewRecorder()
	registry.Handler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alpha\ttrue")
}
