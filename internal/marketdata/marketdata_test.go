package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"trading-signalbot/internal/model"
)

const klinesBody = `[
 [1704067200000,"42000.10","42100.00","41950.50","42050.00","12.5",1704070799999,"0",10,"0","0","0"],
 [1704070800000,"42050.00","42200.00","42000.00","42180.25","8.25",1704074399999,"0",7,"0","0","0"]
]`

func TestBinance_FetchBars(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	bars, err := NewBinanceClient(srv.URL).FetchBars(context.Background(), "BTC/USDT", "1h", 240)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotQuery != "interval=1h&limit=240&symbol=BTCUSDT" {
		t.Errorf("query = %s", gotQuery)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars", len(bars))
	}
	b := bars[1]
	if b.Symbol != "BTC/USDT" || b.Timeframe != "1h" {
		t.Errorf("identity = %s@%s", b.Symbol, b.Timeframe)
	}
	if b.Close != 42180.25 || b.High != 42200 || b.Volume != 8.25 {
		t.Errorf("bar = %+v", b)
	}
	if !b.OpenTime.Equal(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)) {
		t.Errorf("open time = %v", b.OpenTime)
	}
}

func TestBinance_ErrorsAreDataUnavailable(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"bad symbol": {400, `{"code":-1121,"msg":"Invalid symbol."}`},
		"empty":      {200, `[]`},
		"garbage":    {200, `{"oops":true}`},
		"short row":  {200, `[[1704067200000,"1","2"]]`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewBinanceClient(srv.URL).FetchBars(context.Background(), "NOPE/USDT", "5m", 10)
			if !errors.Is(err, model.ErrDataUnavailable) {
				t.Errorf("expected ErrDataUnavailable, got %v", err)
			}
		})
	}
}

func globalServer(t *testing.T, hits *int32, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/api/v3/global" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"data":{"market_cap_percentage":{"btc":52.4,"eth":16.9}}}`))
	}))
}

func TestCoinGecko_DominanceAndCache(t *testing.T) {
	var hits int32
	srv := globalServer(t, &hits, 200)
	defer srv.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cg := NewCoinGecko(srv.URL, nil)
	cg.now = func() time.Time { return now }
	ctx := context.Background()

	if r := cg.Dominance(ctx, "BTC/USDT"); !r.OK || r.Value != 52.4 {
		t.Errorf("btc dominance = %+v", r)
	}
	if r := cg.Dominance(ctx, "ETH/USDT"); !r.OK || r.Value != 16.9 {
		t.Errorf("eth dominance = %+v", r)
	}
	if r := cg.Dominance(ctx, "PEPE/USDT"); r.OK {
		t.Errorf("unknown asset should be unavailable, got %+v", r)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected 1 API call within TTL, got %d", n)
	}

	now = now.Add(DominanceTTL + time.Second)
	cg.Dominance(ctx, "BTC/USDT")
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("expected refetch after TTL, got %d calls", n)
	}
}

func TestCoinGecko_FailureIsNoReading(t *testing.T) {
	var hits int32
	srv := globalServer(t, &hits, 429)
	defer srv.Close()

	if r := NewCoinGecko(srv.URL, nil).Dominance(context.Background(), "BTC/USDT"); r.OK {
		t.Errorf("rate-limited fetch should be unavailable, got %+v", r)
	}
}

// memCache is an in-memory Cache.
type memCache struct {
	data map[string][]byte
	sets int
}

func (m *memCache) GetJSON(_ context.Context, key string, v any) (bool, error) {
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, v)
}

func (m *memCache) SetJSONTTL(_ context.Context, key string, v any, _ time.Duration) error {
	b, _ := json.Marshal(v)
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = b
	m.sets++
	return nil
}

func TestCoinGecko_SharedCache(t *testing.T) {
	var hits int32
	srv := globalServer(t, &hits, 200)
	defer srv.Close()

	cache := &memCache{}
	ctx := context.Background()
	NewCoinGecko(srv.URL, cache).Dominance(ctx, "BTC/USDT")
	if cache.sets != 1 {
		t.Fatalf("expected table written to shared cache, sets=%d", cache.sets)
	}

	// A second process reads the shared cache instead of the API.
	if r := NewCoinGecko(srv.URL, cache).Dominance(ctx, "ETH/USDT"); !r.OK || r.Value != 16.9 {
		t.Errorf("cached eth dominance = %+v", r)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected 1 API call, got %d", n)
	}
}

func TestNoDominance(t *testing.T) {
	if r := (NoDominance{}).Dominance(context.Background(), "BTC/USDT"); r.OK {
		t.Error("NoDominance must be unavailable")
	}
}
