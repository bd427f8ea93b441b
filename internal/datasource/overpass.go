package datasource

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/MeKo-Tech/osmterrain/internal/osm"
)

// ClientTransport runs queries through the go-overpass client, which limits
// parallel requests and decodes the response. The decoded result is
// re-encoded as Overpass JSON so it can be cached and indexed like a raw
// body. Area elements and geometry breaks are not preserved by the client.
type ClientTransport struct {
	client overpass.Client
}

// NewClientTransport creates a client transport (rate limited to 1 concurrent
// request, per API etiquette).
func NewClientTransport(endpoint string) *ClientTransport {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &ClientTransport{
		client: overpass.NewWithSettings(endpoint, 1, http.DefaultClient),
	}
}

func (t *ClientTransport) Do(ctx context.Context, query string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The client has no context support.
	result, err := t.client.Query(query)
	if err != nil {
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}

	data, err := osm.FromOverpassResult(&result).Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode overpass result: %w", err)
	}
	return data, nil
}
