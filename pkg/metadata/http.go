package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const metaRequestTimeout = 10 * time.Second

// HTTPProvider reads cube metadata from the semantic-layer server's meta
// endpoint. Built fresh per request by callers; responses are not cached
// here.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider for the given semantic-layer base URL.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: metaRequestTimeout},
	}
}

// ListCubes implements CubeProvider.
func (p *HTTPProvider) ListCubes(ctx context.Context) ([]Cube, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/meta", nil)
	if err != nil {
		return nil, fmt.Errorf("build meta request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch cube metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("meta endpoint returned HTTP %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Cubes []Cube `json:"cubes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode cube metadata: %w", err)
	}

	return payload.Cubes, nil
}

var _ CubeProvider = (*HTTPProvider)(nil)
