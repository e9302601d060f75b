package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/pricealert/internal/domain"
)

// maxBody caps how much of the response we read; price payloads are tiny.
const maxBody = 1 << 20

// HTTPSource GETs a JSON document and reads a number at Field.
// Field is a dot path; numeric segments index into arrays ("data.0.price").
// An empty Field means the whole document is the number.
type HTTPSource struct {
	Client  *http.Client
	URL     string
	Field   string
	Headers map[string]string
}

func NewHTTPSource(url, field string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		Client: &http.Client{Timeout: timeout},
		URL:    url,
		Field:  field,
	}
}

// Fetch returns a finite price. Every failure wraps domain.ErrFetch.
func (h *HTTPSource) Fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, fmt.Errorf("%w: read body: %v", domain.ErrFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: unexpected status %s: %s", domain.ErrFetch, resp.Status, snippet(body))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return 0, fmt.Errorf("%w: decode payload: %v", domain.ErrFetch, err)
	}

	raw, err := lookup(doc, h.Field)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	price, err := toFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: %v", domain.ErrFetch, h.Field, err)
	}
	return price, nil
}

func lookup(doc any, path string) (any, error) {
	if path == "" {
		return doc, nil
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("field %q: key %q not found", path, seg)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("field %q: bad index %q", path, seg)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("field %q: cannot descend into %T at %q", path, cur, seg)
		}
	}
	return cur, nil
}

// Exchanges disagree on whether prices are JSON numbers or strings; accept both.
func toFloat(v any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	case nil:
		return 0, fmt.Errorf("value is null")
	default:
		return 0, fmt.Errorf("value is %T, not a number", v)
	}
	if err != nil {
		return 0, fmt.Errorf("not a number: %v", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %v", f)
	}
	return f, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
