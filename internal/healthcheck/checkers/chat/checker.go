package chatchecker

import (
	"context"
	"strings"

	"github.com/deepchat-ai/deepchat/internal/healthcheck"
	"github.com/deepchat-ai/deepchat/internal/models"
)

const (
	checkTypeCatalog  = "chat.catalog"
	checkTypeUpstream = "chat.upstream"
)

// Catalog is the read side of *models.Catalog.
type Catalog interface {
	List() []models.Capability
	Multimodal() []string
	Default() string
}

// Checker reports on chat readiness without calling the provider: the model
// catalog must be usable and an API key configured.
type Checker struct {
	catalog Catalog
	baseURL string
	apiKey  string
}

func NewChecker(catalog Catalog, baseURL, apiKey string) *Checker {
	return &Checker{catalog: catalog, baseURL: strings.TrimSpace(baseURL), apiKey: strings.TrimSpace(apiKey)}
}

func (c *Checker) ListChecks(context.Context) []healthcheck.CheckResult {
	return []healthcheck.CheckResult{c.catalogCheck(), c.upstreamCheck()}
}

func (c *Checker) catalogCheck() healthcheck.CheckResult {
	result := healthcheck.CheckResult{ID: "models", Type: checkTypeCatalog}
	if c.catalog == nil {
		result.Status = healthcheck.StatusError
		result.Summary = "model catalog is not loaded"
		return result
	}
	all := c.catalog.List()
	multimodal := c.catalog.Multimodal()
	result.Metadata = map[string]any{
		"default":    c.catalog.Default(),
		"models":     len(all),
		"multimodal": len(multimodal),
	}
	switch {
	case len(all) == 0:
		result.Status = healthcheck.StatusError
		result.Summary = "model catalog is empty"
	case len(multimodal) == 0:
		result.Status = healthcheck.StatusWarn
		result.Summary = "no model accepts images"
	default:
		result.Status = healthcheck.StatusOK
		result.Summary = "model catalog loaded"
	}
	return result
}

func (c *Checker) upstreamCheck() healthcheck.CheckResult {
	result := healthcheck.CheckResult{
		ID:       "upstream",
		Type:     checkTypeUpstream,
		Metadata: map[string]any{"base_url": c.baseURL},
	}
	if c.apiKey == "" {
		result.Status = healthcheck.StatusError
		result.Summary = "upstream api key is not configured"
		return result
	}
	result.Status = healthcheck.StatusOK
	result.Summary = "upstream configured"
	return result
}
