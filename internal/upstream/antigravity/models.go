package antigravity

import (
	"context"
	"io"
	"net/http"
	"sort"

	"github.com/tidwall/gjson"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/models"
)

// CatalogModel is one entry of the upstream model catalog.
type CatalogModel struct {
	ID    string
	Quota *models.ModelQuota
}

// FetchModels retrieves the upstream model catalog for the given account
// token. The answer may arrive wrapped in a response field; both shapes parse.
func (c *Client) FetchModels(ctx context.Context, accessToken string) ([]CatalogModel, error) {
	resp, err := c.postJSON(ctx, "models", c.cfg.Get().API.ModelsURL, []byte("{}"), accessToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.MapHTTPError(resp.StatusCode, body, resp.Header)
	}
	return parseCatalog(body), nil
}

// Quotas fetches the catalog and keeps only entries carrying quotaInfo.
// Bypasses every caching layer on purpose; admin quota checks want live data.
func (c *Client) Quotas(ctx context.Context, accessToken string) ([]models.ModelQuota, error) {
	catalog, err := c.FetchModels(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	quotas := make([]models.ModelQuota, 0, len(catalog))
	for _, m := range catalog {
		if m.Quota == nil {
			continue
		}
		q := *m.Quota
		q.Model = m.ID
		quotas = append(quotas, q)
	}
	return quotas, nil
}

func parseCatalog(body []byte) []CatalogModel {
	doc := gjson.ParseBytes(body)
	if r := doc.Get("response"); r.Exists() {
		doc = r
	}
	modelsNode := doc.Get("models")
	if !modelsNode.Exists() {
		return nil
	}
	var out []CatalogModel
	modelsNode.ForEach(func(key, value gjson.Result) bool {
		entry := CatalogModel{ID: key.String()}
		if qi := value.Get("quotaInfo"); qi.Exists() {
			entry.Quota = &models.ModelQuota{
				RemainingFraction: qi.Get("remainingFraction").Float(),
				ResetTime:         qi.Get("resetTime").String(),
			}
		}
		out = append(out, entry)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
