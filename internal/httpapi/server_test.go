package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/pricealert/internal/domain"
	apimw "github.com/hamed0406/pricealert/internal/httpapi/middleware"
	"github.com/hamed0406/pricealert/internal/metrics"
	"github.com/hamed0406/pricealert/internal/repo/memory"
)

// ---- test helpers ----

type brokenStore struct{}

func (brokenStore) Load(context.Context) (domain.State, error) {
	return domain.State{}, errors.New("connection reset")
}
func (brokenStore) Save(context.Context, domain.State) error { return nil }

var testTargets = []domain.Target{
	{ID: "btc-60k", Label: "BTC 60k", Threshold: 60000, Buffer: 2000},
	{ID: "btc-50k", Label: "BTC 50k", Threshold: 50000},
}

func setupServer(t *testing.T, store *memory.Store) *httptest.Server {
	t.Helper()
	m := metrics.New()
	m.RecordPrice(58000)
	srv := NewServer(zap.NewNop(), testTargets, store, m)

	keys := apimw.Keys{Public: []string{"pub_test"}}
	// very high rate limits to avoid flakiness in tests
	ts := httptest.NewServer(srv.Router(keys, nil, 10_000, 10_000))
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url, key string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ---- tests ----

func TestHealthzAndMetricsArePublic(t *testing.T) {
	ts := setupServer(t, memory.New())

	if resp := get(t, ts.URL+"/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz want 200, got %d", resp.StatusCode)
	}
	resp := get(t, ts.URL+"/metrics", "")
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "pricealert_last_price 58000") {
		t.Fatalf("metrics missing last price:\n%s", body)
	}
}

func TestListTargets_RequiresKey(t *testing.T) {
	ts := setupServer(t, memory.New())
	if resp := get(t, ts.URL+"/api/targets", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
}

func TestListTargets_MergesConfigAndState(t *testing.T) {
	store := memory.New()
	at := int64(1_700_000_000_000)
	st := domain.NewState()
	st.Targets["btc-60k"] = domain.TargetState{Armed: false, LastState: domain.ZoneBelow, LastAlertAtMs: &at}
	if err := store.Save(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	ts := setupServer(t, store)

	resp := get(t, ts.URL+"/api/targets", "pub_test")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var list []targetView
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].ID != "btc-60k" || list[1].ID != "btc-50k" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[0].RearmLevel != 62000 || list[0].State.Armed || list[0].State.LastAlertAt == nil {
		t.Fatalf("btc-60k view wrong: %+v", list[0])
	}
	if !list[1].State.Armed || list[1].State.LastAlertAtMs != nil {
		t.Fatalf("target without a record should show defaults: %+v", list[1])
	}
}

func TestGetTarget(t *testing.T) {
	ts := setupServer(t, memory.New())

	resp := get(t, ts.URL+"/api/targets/btc-50k", "pub_test")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var v targetView
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v.Label != "BTC 50k" || !v.State.Armed {
		t.Fatalf("unexpected view %+v", v)
	}

	if resp := get(t, ts.URL+"/api/targets/nope", "pub_test"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}
}

func TestState_ReturnsPersistedDocument(t *testing.T) {
	store := memory.New()
	st := domain.NewState()
	st.Targets["retired"] = domain.TargetState{Armed: true, LastState: domain.ZoneAbove}
	_ = store.Save(context.Background(), st)
	ts := setupServer(t, store)

	resp := get(t, ts.URL+"/api/state", "pub_test")
	var doc domain.State
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.Version != domain.StateVersion {
		t.Fatalf("version = %d", doc.Version)
	}
	if _, ok := doc.Targets["retired"]; !ok {
		t.Fatalf("stale record missing: %+v", doc)
	}
}

func TestStoreFailureIs500(t *testing.T) {
	srv := NewServer(nil, testTargets, brokenStore{}, nil)
	rec := httptest.NewRecorder()
	srv.Router(apimw.Keys{}, nil, 0, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/targets", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
}
