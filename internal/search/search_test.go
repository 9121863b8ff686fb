package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misterblack0101/letsride-sub000/internal/catalog"
)

func TestService_ShortQueryReturnsEmpty(t *testing.T) {
	lister := &stubLister{}
	svc := NewService(nil, newTestIndex(t, lister))
	ctx := context.Background()

	got, err := svc.Search(ctx, " a ", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	suggestions, err := svc.Suggest(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	// Neither call may touch the backend.
	assert.Zero(t, lister.calls)
}

func TestService_FallbackWhenNoRemote(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "Trail Blazer", "Ridgeline", 4.0),
	}}
	svc := NewService(nil, newTestIndex(t, lister))

	got, err := svc.Search(context.Background(), "trail", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestService_RemotePreferred(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/indexes/products/query", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": []map[string]any{{
				"objectID":    "p9",
				"name":        "Remote Bike",
				"category":    "Bikes",
				"subCategory": "Road",
				"actualPrice": 500.0,
			}},
		})
	}))
	defer ts.Close()

	lister := &stubLister{}
	remote := NewRemoteClient(ts.URL, "products", "secret", ts.Client())
	svc := NewService(remote, newTestIndex(t, lister))

	got, err := svc.Search(context.Background(), "bike", 10, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p9", got[0].ID)

	assert.Equal(t, "bike", gotBody["query"])
	assert.Equal(t, 10.0, gotBody["hitsPerPage"])
	assert.Equal(t, 2.0, gotBody["page"])

	// The fallback snapshot is never loaded when the remote answers.
	assert.Zero(t, lister.calls)
}

func TestRemoteClient_InvalidHitsDropped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": []map[string]any{
				{"objectID": "bad"}, // no price, fails validation
				{
					"objectID":    "good",
					"name":        "Remote Bike",
					"category":    "Bikes",
					"subCategory": "Road",
					"actualPrice": 500.0,
				},
			},
		})
	}))
	defer ts.Close()

	remote := NewRemoteClient(ts.URL, "products", "", ts.Client())
	got, err := remote.Search(context.Background(), "bike", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].ID)
}

func TestRemoteClient_RejectsUnalignedOffset(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("an inexpressible offset must not reach the index")
	}))
	defer ts.Close()

	remote := NewRemoteClient(ts.URL, "products", "", ts.Client())
	_, err := remote.Search(context.Background(), "bike", 10, 15)
	require.ErrorIs(t, err, ErrUnalignedOffset)
}

func TestRemoteClient_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer ts.Close()

	remote := NewRemoteClient(ts.URL, "products", "", ts.Client())
	_, err := remote.Search(context.Background(), "bike", 10, 0)
	require.Error(t, err)
}

func TestService_SuggestAlwaysUsesFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("suggestions must not hit the remote index")
	}))
	defer ts.Close()

	lister := &stubLister{products: nil}
	lister.products = append(lister.products, testProduct("p1", "Trail Blazer", "Ridgeline", 4.0))
	remote := NewRemoteClient(ts.URL, "products", "", ts.Client())
	svc := NewService(remote, newTestIndex(t, lister))

	got, err := svc.Suggest(context.Background(), "trail")
	require.NoError(t, err)
	assert.Contains(t, got, "Trail Blazer")
}
