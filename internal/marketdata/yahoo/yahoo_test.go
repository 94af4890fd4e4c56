package yahoo

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sitshu/stock-analyst/internal/cache"
)

func TestRowTime(t *testing.T) {
	col := map[string]int{"startdatetime": 0}

	cases := []struct {
		raw  any
		ok   bool
		want time.Time
	}{
		{"2024-04-25T20:00:00.000Z", true, time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC)},
		{"2024-04-25T20:00:00Z", true, time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC)},
		{"2024-04-25", true, time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC)},
		{"yesterday", false, time.Time{}},
		{42.0, false, time.Time{}},
		{nil, false, time.Time{}},
	}
	for _, tc := range cases {
		got, ok := rowTime([]any{tc.raw}, col, "startdatetime")
		if ok != tc.ok {
			t.Errorf("rowTime(%v) ok = %v, want %v", tc.raw, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(tc.want) {
			t.Errorf("rowTime(%v) = %s, want %s", tc.raw, got, tc.want)
		}
	}

	if _, ok := rowTime([]any{"2024-04-25"}, col, "absent"); ok {
		t.Error("expected miss for an unknown column")
	}
}

func TestRowFloat(t *testing.T) {
	col := map[string]int{"epsactual": 0, "epsestimate": 1}
	row := []any{1.52, nil}

	if got := rowFloat(row, col, "epsactual"); got == nil || *got != 1.52 {
		t.Errorf("rowFloat = %v, want 1.52", got)
	}
	if got := rowFloat(row, col, "epsestimate"); got != nil {
		t.Errorf("null cell = %v, want nil", *got)
	}
	if got := rowFloat(row, col, "missing"); got != nil {
		t.Errorf("unknown column = %v, want nil", *got)
	}
	if got := rowFloat(row[:1], col, "epsestimate"); got != nil {
		t.Errorf("short row = %v, want nil", *got)
	}
}

func TestCachedFetchReadThrough(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.sqlite"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c := New("test-agent/1.0", WithCache(store))

	calls := 0
	fetch := func() ([]string, error) {
		calls++
		return []string{"fresh"}, nil
	}

	first, err := cachedFetch(c, "k", time.Minute, fetch)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := cachedFetch(c, "k", time.Minute, fetch)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1 (second read must hit the cache)", calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0] != "fresh" {
		t.Errorf("payloads = %v, %v", first, second)
	}
}

func TestCachedFetchErrorsAreNotCached(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.sqlite"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c := New("test-agent/1.0", WithCache(store))
	boom := errors.New("upstream down")

	if _, err := cachedFetch(c, "k", time.Minute, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	calls := 0
	got, err := cachedFetch(c, "k", time.Minute, func() (int, error) { calls++; return 7, nil })
	if err != nil || got != 7 || calls != 1 {
		t.Errorf("retry after error: got %d calls=%d err=%v, want a fresh fetch", got, calls, err)
	}
}

func TestOptionsCompose(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.sqlite"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c := New("test-agent/1.0", WithTimeout(5*time.Second), WithCache(store))
	if c.timeout != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", c.timeout)
	}
	if c.cache == nil {
		t.Error("WithTimeout must not discard the cache option")
	}
	if c.http == nil {
		t.Error("expected the HTTP client to be built")
	}

	if d := New("test-agent/1.0"); d.timeout != defaultFetchTimeout {
		t.Errorf("default timeout = %s, want %s", d.timeout, defaultFetchTimeout)
	}
}

func TestCachedFetchWithoutCache(t *testing.T) {
	c := New("test-agent/1.0")

	calls := 0
	for i := 0; i < 2; i++ {
		if _, err := cachedFetch(c, "k", time.Minute, func() (int, error) { calls++; return 1, nil }); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("fetch calls = %d, want 2 when caching is disabled", calls)
	}
}
