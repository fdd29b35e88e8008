package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/fekuna/omnipos-ledger-service/config"
	"github.com/fekuna/omnipos-ledger-service/internal/item/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
)

const itemsIndex = "ledger-items"

const itemsMapping = `{
	"mappings": {
		"properties": {
			"tenant_id": { "type": "keyword" },
			"sku": { "type": "keyword", "normalizer": "lowercase" },
			"name_en": { "type": "text" },
			"name_ar": { "type": "text" },
			"created_at": { "type": "date" }
		}
	},
	"settings": {
		"analysis": {
			"normalizer": {
				"lowercase": { "type": "custom", "filter": ["lowercase"] }
			}
		}
	}
}`

type Client struct {
	es        *elasticsearch.Client
	indexOnce sync.Once
	indexErr  error
}

func NewClient(cfg *config.ElasticsearchConfig) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

type itemDocument struct {
	TenantID  string  `json:"tenant_id"`
	SKU       string  `json:"sku"`
	NameEn    string  `json:"name_en"`
	NameAr    *string `json:"name_ar,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// ensureIndex creates the items index on first use.
func (c *Client) ensureIndex(ctx context.Context) error {
	c.indexOnce.Do(func() {
		res, err := c.es.Indices.Exists([]string{itemsIndex}, c.es.Indices.Exists.WithContext(ctx))
		if err != nil {
			c.indexErr = err
			return
		}
		res.Body.Close()
		if res.StatusCode != http.StatusNotFound {
			return
		}

		res, err = c.es.Indices.Create(itemsIndex,
			c.es.Indices.Create.WithContext(ctx),
			c.es.Indices.Create.WithBody(strings.NewReader(itemsMapping)),
		)
		if err != nil {
			c.indexErr = err
			return
		}
		defer res.Body.Close()
		if res.IsError() && res.StatusCode != http.StatusBadRequest { // 400: created concurrently
			c.indexErr = fmt.Errorf("create index: %s", res.String())
		}
	})
	return c.indexErr
}

func (c *Client) IndexItem(ctx context.Context, it *model.Item) error {
	if err := c.ensureIndex(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(itemDocument{
		TenantID:  it.TenantID,
		SKU:       it.SKU,
		NameEn:    it.NameEn,
		NameAr:    it.NameAr,
		CreatedAt: it.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return err
	}

	res, err := c.es.Index(itemsIndex, bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(it.ID),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index item %s: %s", it.ID, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchItems returns the ids of the tenant's matching items, newest first,
// and the total match count.
func (c *Client) SearchItems(ctx context.Context, f *dto.ItemFilters) ([]string, int, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	wildcard := "*" + escapeWildcard(q) + "*"

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"tenant_id": f.TenantID}},
				},
				"should": []map[string]interface{}{
					{"wildcard": map[string]interface{}{"sku": map[string]interface{}{"value": wildcard}}},
					{"wildcard": map[string]interface{}{"name_en": map[string]interface{}{"value": wildcard, "case_insensitive": true}}},
					{"wildcard": map[string]interface{}{"name_ar": map[string]interface{}{"value": wildcard, "case_insensitive": true}}},
				},
				"minimum_should_match": 1,
			},
		},
		"sort":    []map[string]interface{}{{"created_at": "desc"}},
		"from":    f.Offset(),
		"size":    f.Limit,
		"_source": false,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, 0, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(itemsIndex),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search items: %s", res.String())
	}

	return decodeSearch(res.Body)
}

func decodeSearch(body io.Reader) ([]string, int, error) {
	var parsed searchResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, parsed.Hits.Total.Value, nil
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}
