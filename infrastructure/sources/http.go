// Package sources contains the draw source adapters the acquisition manager
// fails over between.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pc28/domain/entities"
)

// maxResponseBytes bounds how much of a provider response is read
const maxResponseBytes = 1 << 20

// providerLocation is the zone provider timestamps without an offset are in
var providerLocation = time.FixedZone("UTC+8", 8*60*60)

const providerTimeLayout = "2006-01-02 15:04:05"

// httpSource holds what every HTTP adapter shares
type httpSource struct {
	desc       entities.SourceDescriptor
	endpoint   string
	httpClient *http.Client
	userAgent  string
	now        func() time.Time
}

func newHTTPSource(name string, priority int, enabled bool, endpoint string, timeout time.Duration) httpSource {
	return httpSource{
		desc: entities.SourceDescriptor{
			Name:     name,
			Priority: priority,
			Enabled:  enabled,
		},
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		now:       time.Now,
	}
}

// Descriptor returns the adapter's static identity
func (s *httpSource) Descriptor() entities.SourceDescriptor {
	return s.desc
}

// getJSON fetches the endpoint with a cache-busting parameter and decodes the body into out
func (s *httpSource) getJSON(ctx context.Context, out any) error {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", s.endpoint, err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(s.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseProviderTime accepts RFC 3339 or the providers' zone-less layout
func parseProviderTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(providerTimeLayout, value, providerLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid draw time %q: %w", value, err)
	}
	return t, nil
}

func truncate(b []byte, n int) string {
	b = bytes.TrimSpace(b)
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// flexString decodes a JSON string or number into its text form
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return string(f)
}
