package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/egfanboy/mediapire-gateway/internal/identifier"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
	"github.com/goccy/go-json"
)

// GatewayApi is a client for the JSON endpoints of a running gateway.
type GatewayApi interface {
	Browse(ctx context.Context, id types.ContentID) (types.Node, error)
	Resolve(ctx context.Context, id types.ContentID) (types.ResolvedMedia, error)
	// ProxyUrl is the address a player can stream id from.
	ProxyUrl(id types.ContentID) string
}

// StatusError carries the status and message of a non-2xx gateway answer.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

type gatewayClient struct {
	baseUrl    string
	httpClient *http.Client
}

func (c *gatewayClient) Browse(ctx context.Context, id types.ContentID) (node types.Node, err error) {
	err = c.get(ctx, "/browse", id, &node)
	return
}

func (c *gatewayClient) Resolve(ctx context.Context, id types.ContentID) (resolved types.ResolvedMedia, err error) {
	err = c.get(ctx, "/resolve", id, &resolved)
	return
}

func (c *gatewayClient) ProxyUrl(id types.ContentID) string {
	return c.endpoint("/proxy", id)
}

func (c *gatewayClient) endpoint(path string, id types.ContentID) string {
	if id.IsEmpty() {
		return c.baseUrl + path
	}

	return c.baseUrl + path + "?" + identifier.Query(id)
}

func (c *gatewayClient) get(ctx context.Context, path string, id types.ContentID, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, id), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	r, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()

	if r.StatusCode < 200 || r.StatusCode > 299 {
		var body types.ErrorResponse
		b, _ := io.ReadAll(io.LimitReader(r.Body, 4096))
		if json.Unmarshal(b, &body) != nil || body.Error == "" {
			body.Error = http.StatusText(r.StatusCode)
		}

		return &StatusError{StatusCode: r.StatusCode, Message: body.Error}
	}

	return json.NewDecoder(r.Body).Decode(out)
}

// NewGatewayClient talks to the gateway at baseUrl, including any base path.
// A nil httpClient uses http.DefaultClient.
func NewGatewayClient(baseUrl string, httpClient *http.Client) GatewayApi {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &gatewayClient{baseUrl: strings.TrimRight(baseUrl, "/"), httpClient: httpClient}
}
