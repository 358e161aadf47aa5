// Package discovery serves the model catalog: the upstream list fetched
// with a pooled account, merged with the fixed default names, cached with
// a pressure-sensitive TTL. Quota lookups bypass the cache on purpose.
package discovery

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/cache"
	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/relay"
	"antigravity2api-go/internal/upstream/antigravity"
)

const catalogTimeout = 20 * time.Second

// CatalogClient is the upstream surface the service needs.
type CatalogClient interface {
	FetchModels(ctx context.Context, accessToken string) ([]antigravity.CatalogModel, error)
	Quotas(ctx context.Context, accessToken string) ([]models.ModelQuota, error)
}

// AccountSource hands out account snapshots for catalog fetches.
type AccountSource interface {
	Acquire(ctx context.Context) (*models.Account, error)
	Release(acct *models.Account, outcome string)
}

// ModelService answers the three dialects' model-list endpoints.
type ModelService struct {
	client CatalogClient
	pool   AccountSource
	cache  *cache.ModelListCache
}

func NewModelService(client CatalogClient, pool AccountSource, stores *cache.Stores) *ModelService {
	return &ModelService{client: client, pool: pool, cache: stores.Models}
}

// List returns the merged catalog. Well-known names are always present;
// upstream extras join by fetching with a pooled account. With no usable
// account, or a failing upstream, the default list serves alone.
func (s *ModelService) List(ctx context.Context) []string {
	if cached, ok := s.cache.Get(); ok {
		return cached
	}

	fetched := s.fetch(ctx)
	merged := mergeWithDefaults(fetched)
	if len(fetched) > 0 {
		s.cache.Set(merged)
	}
	return merged
}

// Quotas returns the live per-model quota snapshot for one account token.
func (s *ModelService) Quotas(ctx context.Context, accessToken string) ([]models.ModelQuota, error) {
	ctx, cancel := context.WithTimeout(ctx, catalogTimeout)
	defer cancel()
	return s.client.Quotas(ctx, accessToken)
}

func (s *ModelService) fetch(ctx context.Context) []string {
	acct, err := s.pool.Acquire(ctx)
	if err != nil {
		log.WithError(err).Debug("model catalog: no account available, serving defaults")
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, catalogTimeout)
	defer cancel()

	catalog, err := s.client.FetchModels(fctx, acct.AccessToken)
	s.pool.Release(acct, relay.Outcome(err))
	if err != nil {
		log.WithError(err).Warn("model catalog fetch failed, serving defaults")
		return nil
	}

	ids := make([]string, 0, len(catalog))
	for _, m := range catalog {
		ids = append(ids, m.ID)
	}
	return ids
}

// mergeWithDefaults unions upstream ids with the default list: defaults
// keep their order, upstream extras follow sorted.
func mergeWithDefaults(upstream []string) []string {
	seen := make(map[string]bool, len(constants.DefaultModels)+len(upstream))
	merged := make([]string, 0, len(constants.DefaultModels)+len(upstream))
	for _, id := range constants.DefaultModels {
		if id != "" && !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	extras := make([]string, 0, len(upstream))
	for _, id := range upstream {
		if id != "" && !seen[id] {
			seen[id] = true
			extras = append(extras, id)
		}
	}
	sort.Strings(extras)
	return append(merged, extras...)
}
