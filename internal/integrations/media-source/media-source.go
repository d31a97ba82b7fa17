package mediasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/egfanboy/mediapire-gateway/internal/identifier"
	"github.com/egfanboy/mediapire-gateway/internal/metrics"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	pathBrowse  = "/media_source/browse"
	pathResolve = "/media_source/resolve"

	DefaultTimeout = 60 * time.Second

	// backend responses are small JSON documents, anything larger is not a catalog answer
	maxResponseSize = 16 << 20
)

type MediaSourceIntegration interface {
	Browse(ctx context.Context, id types.ContentID) (types.Node, error)
	Resolve(ctx context.Context, id types.ContentID) (types.ResolvedMedia, error)
}

type Config struct {
	BaseUrl string
	Token   string
	RootId  types.ContentID
	Timeout time.Duration
}

type integration struct {
	baseUrl    *url.URL
	token      string
	rootId     types.ContentID
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// wire shape of a browse answer; pointers mark the fields whose absence is an error
type browseNode struct {
	Title            *string      `json:"title"`
	ContentId        *string      `json:"media_content_id"`
	CanExpand        bool         `json:"can_expand"`
	CanPlay          bool         `json:"can_play"`
	MediaClass       string       `json:"media_class"`
	MediaContentType string       `json:"media_content_type"`
	Thumbnail        *string      `json:"thumbnail"`
	Parent           *string      `json:"parent"`
	Children         []browseNode `json:"children"`
}

type resolveResult struct {
	Url      *string `json:"url"`
	MimeType string  `json:"mime_type"`
}

func (i *integration) Browse(ctx context.Context, id types.ContentID) (types.Node, error) {
	if id.IsEmpty() {
		id = i.rootId
	}

	var raw browseNode
	err := i.get(ctx, "browse", pathBrowse, id, &raw)
	if err != nil {
		return types.Node{}, err
	}

	node, err := raw.toNode()
	if err != nil {
		i.metrics.ObserveBackendCall("browse", "malformed")
		return types.Node{}, fmt.Errorf("browse %q: %w", id, err)
	}

	i.metrics.ObserveBackendCall("browse", "ok")

	return node, nil
}

func (i *integration) Resolve(ctx context.Context, id types.ContentID) (types.ResolvedMedia, error) {
	var raw resolveResult
	err := i.get(ctx, "resolve", pathResolve, id, &raw)
	if err != nil {
		return types.ResolvedMedia{}, err
	}

	if raw.Url == nil || *raw.Url == "" {
		i.metrics.ObserveBackendCall("resolve", "not_resolvable")
		return types.ResolvedMedia{}, fmt.Errorf("resolve %q: %w", id, ErrNotResolvable)
	}

	mediaUrl, err := i.absoluteUrl(*raw.Url)
	if err != nil {
		i.metrics.ObserveBackendCall("resolve", "malformed")
		return types.ResolvedMedia{}, fmt.Errorf("resolve %q: url %q: %w", id, *raw.Url, ErrMalformedResponse)
	}

	i.metrics.ObserveBackendCall("resolve", "ok")

	return types.ResolvedMedia{Url: mediaUrl, MimeType: raw.MimeType}, nil
}

func (i *integration) get(ctx context.Context, call, path string, id types.ContentID, out interface{}) error {
	endpoint := i.endpoint(path, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", call, err)
	}

	req.Header.Set("Accept", "application/json")
	if i.token != "" {
		req.Header.Set("Authorization", "Bearer "+i.token)
	}

	zerolog.Ctx(ctx).Debug().Str("call", call).Str("media_content_id", id.String()).Msg("calling media source backend")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		i.metrics.ObserveBackendCall(call, "unavailable")
		return fmt.Errorf("%s %q: %w: %v", call, id, ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		i.metrics.ObserveBackendCall(call, "error_status")
		// drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %q: %w", call, id, &BackendError{StatusCode: resp.StatusCode, Path: path})
	}

	err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out)
	if err != nil {
		i.metrics.ObserveBackendCall(call, "malformed")
		return fmt.Errorf("%s %q: %w: %v", call, id, ErrMalformedResponse, err)
	}

	return nil
}

func (i *integration) endpoint(path string, id types.ContentID) string {
	u := *i.baseUrl
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = identifier.Query(id)

	return u.String()
}

// absoluteUrl resolves backend-relative media paths against the backend base address.
func (i *integration) absoluteUrl(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if ref.IsAbs() {
		return ref.String(), nil
	}

	return i.baseUrl.ResolveReference(ref).String(), nil
}

func (n browseNode) toNode() (types.Node, error) {
	if n.ContentId == nil {
		return types.Node{}, fmt.Errorf("node without media_content_id: %w", ErrMalformedResponse)
	}

	node := types.Node{
		ContentID:        types.ContentID(*n.ContentId),
		CanExpand:        n.CanExpand,
		CanPlay:          n.CanPlay,
		MediaClass:       n.MediaClass,
		MediaContentType: n.MediaContentType,
		Children:         []types.Node{},
	}

	if n.Title != nil {
		node.Title = *n.Title
	}

	if n.Thumbnail != nil {
		node.Thumbnail = *n.Thumbnail
	}

	if n.Parent != nil && *n.Parent != "" {
		parent := types.ContentID(*n.Parent)
		node.Parent = &parent
	}

	// leaves never carry children
	if !n.CanExpand {
		return node, nil
	}

	for idx, c := range n.Children {
		child, err := c.toNode()
		if err != nil {
			return types.Node{}, fmt.Errorf("child %d of %q: %w", idx, node.ContentID, err)
		}

		node.Children = append(node.Children, child)
	}

	return node, nil
}

func NewMediaSourceIntegration(cfg Config, m *metrics.Metrics) (MediaSourceIntegration, error) {
	base, err := url.Parse(cfg.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("invalid media source url %q: %w", cfg.BaseUrl, err)
	}

	if !base.IsAbs() {
		return nil, fmt.Errorf("media source url %q must be absolute", cfg.BaseUrl)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &integration{
		baseUrl:    base,
		token:      cfg.Token,
		rootId:     cfg.RootId,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
	}, nil
}
