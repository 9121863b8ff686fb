package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/misterblack0101/letsride-sub000/internal/catalog"
	"github.com/misterblack0101/letsride-sub000/internal/docstore"
)

// ErrUnalignedOffset reports an offset the page-based index protocol
// cannot express.
var ErrUnalignedOffset = errors.New("offset must be a multiple of limit")

// RemoteClient talks to the external search index. The index accepts
// {query, hitsPerPage, page} and returns scored hits whose objectID is the
// product identity. It pages rather than offsets, so offsets must be
// multiples of the limit.
type RemoteClient struct {
	baseURL string
	index   string
	apiKey  string
	client  *http.Client
}

// NewRemoteClient creates a client for the index at baseURL. httpClient
// may be nil to use http.DefaultClient.
func NewRemoteClient(baseURL, index, apiKey string, httpClient *http.Client) *RemoteClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteClient{baseURL: baseURL, index: index, apiKey: apiKey, client: httpClient}
}

type remoteQuery struct {
	Query       string `json:"query"`
	HitsPerPage int    `json:"hitsPerPage"`
	Page        int    `json:"page"`
}

type remoteResponse struct {
	Hits []map[string]any `json:"hits"`
}

// Search queries the external index and adapts hits to validated products.
// Hits that fail the product schema are dropped, matching the repository
// contract for stored rows.
func (c *RemoteClient) Search(ctx context.Context, query string, limit, offset int) ([]catalog.Product, error) {
	page := 0
	if limit > 0 {
		if offset%limit != 0 {
			return nil, errors.Wrapf(ErrUnalignedOffset, "offset %d, limit %d", offset, limit)
		}
		page = offset / limit
	}
	body, err := json.Marshal(remoteQuery{Query: query, HitsPerPage: limit, Page: page})
	if err != nil {
		return nil, errors.Wrap(err, "encode search query")
	}

	url := fmt.Sprintf("%s/indexes/%s/query", c.baseURL, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build search request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call search index")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("search index responded %d: %s", resp.StatusCode, payload)
	}

	var decoded remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}

	products := make([]catalog.Product, 0, len(decoded.Hits))
	for _, hit := range decoded.Hits {
		id, _ := hit["objectID"].(string)
		delete(hit, "objectID")
		p, invalid := catalog.Decode(docstore.Document{ID: id, Fields: hit})
		if invalid != nil {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}
