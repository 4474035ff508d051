package gas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rafidhia/implantstock/internal/config"
	"github.com/rafidhia/implantstock/internal/domain/models"
)

func stockItem(id int64) models.StockItem {
	return models.StockItem{
		ID:          id,
		Reference:   "IMP-001",
		Description: "Titanium plate",
		QtyOnHand:   10,
		QtyTotal:    10,
	}
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.GASConfig{
		BaseURL: server.URL,
		Token:   "secret",
		Sheet:   "Stock",
	})
}

func TestFetch(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.URL.Query().Get("sheet"); got != "Stock" {
			t.Errorf("expected sheet=Stock, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", got)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": []map[string]any{
				{"id": 1, "reference": "IMP-001", "description": "Titanium plate", "quantityOnHand": 10, "quantityTotal": 10},
			},
		})
	})

	items, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ID != 1 || items[0].Reference != "IMP-001" || items[0].QtyOnHand != 10 {
		t.Errorf("unexpected item: %+v", items[0])
	}
}

func TestUpdate_SendsActionEnvelope(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["action"] != "update" {
			t.Errorf("expected action update, got %v", payload["action"])
		}
		if payload["id"] != float64(3) {
			t.Errorf("expected id 3, got %v", payload["id"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success"})
	})

	item := stockItem(3)
	if err := client.Update(context.Background(), 3, item); err != nil {
		t.Fatalf("update failed: %v", err)
	}
}

func TestWrite_RejectedByStatusField(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": "sheet locked"})
	})

	if err := client.SoftDelete(context.Background(), 1); err == nil {
		t.Fatal("expected rejection when status is error")
	}
}

func TestWrite_HTTPError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": "boom"})
	})

	if err := client.Create(context.Background(), stockItem(0)); err == nil {
		t.Fatal("expected error on 500 response")
	}
}
