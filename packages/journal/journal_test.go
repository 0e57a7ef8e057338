package journal

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hostline/packages/http"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open("sqlite://" + filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"sqlite://./data/journal.db", "./data/journal.db", false},
		{"sqlite:journal.db", "journal.db", false},
		{"/var/lib/hostline.db", "/var/lib/hostline.db", false},
		{":memory:", ":memory:", false},
		{"postgres://localhost/db", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLocation(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()
	base := time.Now()

	for i, status := range []int{200, 404, 0} {
		rec := http.Record{
			ID:         string(rune('a' + i)),
			Host:       "node.example:443",
			Method:     "POST",
			URI:        "https://node.example/json_rpc",
			StatusCode: status,
			Duration:   time.Duration(i+1) * time.Millisecond,
			Time:       base.Add(time.Duration(i) * time.Second),
		}
		if status == 0 {
			rec.ErrorKind = "timeout"
			rec.Error = "request timed out after 50ms"
		}
		require.NoError(t, store.Record(ctx, rec))
	}

	records, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "timeout", records[0].ErrorKind)
	assert.Equal(t, 3*time.Millisecond, records[0].Duration)
	assert.Equal(t, base.Add(2*time.Second).UnixNano(), records[0].Time.UnixNano())
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, 404, records[1].StatusCode)
}

func TestStore_DuplicateID(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, http.Record{ID: "x", Host: "h:80", Method: "GET"}))
	assert.Error(t, store.Record(ctx, http.Record{ID: "x", Host: "h:80", Method: "GET"}))
}

func TestStore_CountByHost(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()

	recs := []http.Record{
		{ID: "1", Host: "a:80", Method: "GET"},
		{ID: "2", Host: "a:80", Method: "GET", ErrorKind: "transport"},
		{ID: "3", Host: "a:80", Method: "GET"},
		{ID: "4", Host: "b:443", Method: "GET"},
	}
	for _, rec := range recs {
		require.NoError(t, store.Record(ctx, rec))
	}

	summaries, err := store.CountByHost(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, HostSummary{Host: "a:80", Requests: 3, Failures: 1}, summaries[0])
	assert.Equal(t, HostSummary{Host: "b:443", Requests: 1, Failures: 0}, summaries[1])

	forB, err := store.RecentForHost(ctx, "b:443", 10)
	require.NoError(t, err)
	require.Len(t, forB, 1)
	assert.Equal(t, "4", forB[0].ID)
}

func TestStore_Prune(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, http.Record{ID: "old", Host: "a:80", Method: "GET", Time: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Record(ctx, http.Record{ID: "new", Host: "a:80", Method: "GET", Time: now}))

	removed, err := store.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].ID)
}

func TestStore_AsClientRecorder(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusTeapot)
	}))
	defer server.Close()

	store := openTemp(t)
	client := http.NewClient(http.WithRecorder(store))

	_, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)

	records, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 418, records[0].StatusCode)
	assert.Equal(t, "GET", records[0].Method)
}
