package chatchecker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepchat-ai/deepchat/internal/healthcheck"
	"github.com/deepchat-ai/deepchat/internal/models"
)

func TestChecker(t *testing.T) {
	t.Parallel()

	builtin, err := models.NewCatalog(nil, "", models.BuiltinCapabilities())
	require.NoError(t, err)
	textOnly, err := models.NewCatalog(nil, "", []models.Capability{{ModelID: "text-a"}})
	require.NoError(t, err)

	tests := []struct {
		name     string
		catalog  Catalog
		apiKey   string
		catalogS string
		upstream string
	}{
		{name: "ready", catalog: builtin, apiKey: "sk-test", catalogS: healthcheck.StatusOK, upstream: healthcheck.StatusOK},
		{name: "text only", catalog: textOnly, apiKey: "sk-test", catalogS: healthcheck.StatusWarn, upstream: healthcheck.StatusOK},
		{name: "no key", catalog: builtin, apiKey: " ", catalogS: healthcheck.StatusOK, upstream: healthcheck.StatusError},
		{name: "no catalog", catalog: nil, apiKey: "sk-test", catalogS: healthcheck.StatusError, upstream: healthcheck.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			checks := NewChecker(tc.catalog, "https://openrouter.ai/api/v1", tc.apiKey).ListChecks(context.Background())
			require.Len(t, checks, 2)
			assert.Equal(t, tc.catalogS, checks[0].Status)
			assert.Equal(t, tc.upstream, checks[1].Status)
		})
	}
}
