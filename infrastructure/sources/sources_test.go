package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pc28/config"
	"pc28/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProviderServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("t"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestUSA28Source_FetchLatest(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expected    []entities.DrawItem
		expectError bool
	}{
		{
			name:   "two items newest first",
			status: http.StatusOK,
			body: `{"code":0,"msg":"ok","data":{"list":[
				{"drawIssue":"3300101","drawTime":"2026-03-01 12:03:30","drawCode":"5,3,8"},
				{"drawIssue":3300100,"drawTime":"2026-03-01 12:00:00","drawCode":"0, 0, 9"}
			]}}`,
			expected: []entities.DrawItem{
				{Issue: "3300101", Digits: [3]int{5, 3, 8}, Sum: 16, DrawTime: time.Date(2026, 3, 1, 4, 3, 30, 0, time.UTC)},
				{Issue: "3300100", Digits: [3]int{0, 0, 9}, Sum: 9, DrawTime: time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)},
			},
		},
		{
			name:   "malformed item skipped",
			status: http.StatusOK,
			body: `{"code":0,"data":{"list":[
				{"drawIssue":"3300101","drawTime":"2026-03-01 12:03:30","drawCode":"5,3"},
				{"drawIssue":"3300100","drawTime":"2026-03-01 12:00:00","drawCode":"1,2,3"}
			]}}`,
			expected: []entities.DrawItem{
				{Issue: "3300100", Digits: [3]int{1, 2, 3}, Sum: 6, DrawTime: time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)},
			},
		},
		{
			name:        "bad envelope code",
			status:      http.StatusOK,
			body:        `{"code":500,"msg":"busy"}`,
			expectError: true,
		},
		{
			name:        "missing data",
			status:      http.StatusOK,
			body:        `{"code":0}`,
			expectError: true,
		},
		{
			name:        "http error",
			status:      http.StatusBadGateway,
			body:        `bad gateway`,
			expectError: true,
		},
		{
			name:        "not json",
			status:      http.StatusOK,
			body:        `<html></html>`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newProviderServer(t, tt.status, tt.body)
			source := NewUSA28Source("usa28", 1, true, server.URL+"/api?lotCode=10029", time.Second)

			items, err := source.FetchLatest(context.Background())
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, items, len(tt.expected))
			for i := range tt.expected {
				assert.Equal(t, tt.expected[i].Issue, items[i].Issue)
				assert.Equal(t, tt.expected[i].Digits, items[i].Digits)
				assert.Equal(t, tt.expected[i].Sum, items[i].Sum)
				assert.True(t, tt.expected[i].DrawTime.Equal(items[i].DrawTime), "draw time %s", items[i].DrawTime)
			}
		})
	}
}

func TestJND28Source_FetchLatest(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expected    []entities.DrawItem
		expectError bool
	}{
		{
			name: "opentime combined with datetime date",
			body: `{"error":0,"result_list":[
				{"expect":3300101,"code1":"2","code2":7,"code3":"4","datetime":"2026-03-01 12:03:41","opentime":"12:03:30"}
			]}`,
			expected: []entities.DrawItem{
				{Issue: "3300101", Digits: [3]int{2, 7, 4}, Sum: 13, DrawTime: time.Date(2026, 3, 1, 4, 3, 30, 0, time.UTC)},
			},
		},
		{
			name: "date field",
			body: `{"error":0,"result_list":[
				{"expect":"3300100","code1":1,"code2":1,"code3":1,"date":"2026-03-01","opentime":"12:00:00"}
			]}`,
			expected: []entities.DrawItem{
				{Issue: "3300100", Digits: [3]int{1, 1, 1}, Sum: 3, DrawTime: time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)},
			},
		},
		{
			name: "out of range code skipped",
			body: `{"error":0,"result_list":[
				{"expect":"3300100","code1":10,"code2":1,"code3":1,"date":"2026-03-01","opentime":"12:00:00"}
			]}`,
			expected: []entities.DrawItem{},
		},
		{
			name:        "error envelope",
			body:        `{"error":1,"msg":"denied"}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newProviderServer(t, http.StatusOK, tt.body)
			source := NewJND28Source("jnd28", 2, true, server.URL, time.Second)

			items, err := source.FetchLatest(context.Background())
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, items, len(tt.expected))
			for i := range tt.expected {
				assert.Equal(t, tt.expected[i].Issue, items[i].Issue)
				assert.Equal(t, tt.expected[i].Digits, items[i].Digits)
				assert.Equal(t, tt.expected[i].Sum, items[i].Sum)
				assert.True(t, tt.expected[i].DrawTime.Equal(items[i].DrawTime))
			}
		})
	}
}

func TestHTTPSource_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	source := NewUSA28Source("usa28", 1, true, server.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := source.FetchLatest(context.Background())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

type stubRecentReader struct {
	draws []*entities.DrawResult
	err   error
}

func (s *stubRecentReader) GetRecent(ctx context.Context, limit int) ([]*entities.DrawResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.draws) > limit {
		return s.draws[:limit], nil
	}
	return s.draws, nil
}

func TestLedgerSource_FetchLatest(t *testing.T) {
	drawTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("maps newest rows", func(t *testing.T) {
		reader := &stubRecentReader{draws: []*entities.DrawResult{
			{Issue: "12", Digits: [3]int{1, 2, 3}, Sum: 6, DrawTime: drawTime},
			{Issue: "11", Digits: [3]int{4, 5, 6}, Sum: 15, DrawTime: drawTime.Add(-210 * time.Second)},
			{Issue: "10", Digits: [3]int{7, 8, 9}, Sum: 24, DrawTime: drawTime.Add(-420 * time.Second)},
		}}
		source := NewLedgerSource("ledger", true, reader)

		items, err := source.FetchLatest(context.Background())
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "12", items[0].Issue)
		assert.Equal(t, [3]int{4, 5, 6}, items[1].Digits)
		assert.Equal(t, LedgerPriority, source.Descriptor().Priority)
	})

	t.Run("read error", func(t *testing.T) {
		source := NewLedgerSource("ledger", true, &stubRecentReader{err: errors.New("db down")})
		_, err := source.FetchLatest(context.Background())
		assert.Error(t, err)
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Run("default sources", func(t *testing.T) {
		adapters, err := NewFromConfig(config.DefaultSources(), &stubRecentReader{})
		require.NoError(t, err)
		require.Len(t, adapters, 3)
		assert.IsType(t, &USA28Source{}, adapters[0])
		assert.IsType(t, &JND28Source{}, adapters[1])
		assert.IsType(t, &LedgerSource{}, adapters[2])
		assert.Equal(t, "jnd28", adapters[1].Descriptor().Name)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := NewFromConfig([]config.SourceConfig{{Name: "x", Kind: "ftp"}}, nil)
		assert.Error(t, err)
	})

	t.Run("ledger without reader", func(t *testing.T) {
		_, err := NewFromConfig([]config.SourceConfig{{Name: "ledger", Kind: config.SourceKindLedger}}, nil)
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewFromConfig(nil, nil)
		assert.Error(t, err)
	})
}
