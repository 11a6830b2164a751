package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"lemonade/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// ProductSearch keeps an Elasticsearch index of the catalog.
type ProductSearch struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

func NewProductSearch(client *elasticsearch.Client, index string, logger *zap.Logger) *ProductSearch {
	return &ProductSearch{client: client, index: index, logger: logger}
}

//
// --- INDEXATION ---
//

func (s *ProductSearch) Index(ctx context.Context, p models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.Itoa(p.ID),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index product %d: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index product %d: %s", p.ID, res.Status())
	}
	s.logger.Debug("✅ product indexed", zap.Int("id", p.ID), zap.String("name", p.Name))
	return nil
}

func (s *ProductSearch) Delete(ctx context.Context, id int) error {
	req := esapi.DeleteRequest{
		Index:      s.index,
		DocumentID: strconv.Itoa(id),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("unindex product %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("unindex product %d: %s", id, res.Status())
	}
	return nil
}

//
// --- RECHERCHE ---
//

// Search matches query against name, description and category.
func (s *ProductSearch) Search(ctx context.Context, query string) ([]models.Product, error) {
	var buf bytes.Buffer
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description", "category"},
				"fuzziness": "AUTO",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search products: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("search products: decode: %w", err)
	}

	products := make([]models.Product, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		products = append(products, hit.Source)
	}
	return products, nil
}
