package catalog

import (
	"context"

	mediasource "github.com/egfanboy/mediapire-gateway/internal/integrations/media-source"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
	"github.com/rs/zerolog"
)

// CatalogApi is the navigator shared by the JSON browse endpoint and the HTML view.
type CatalogApi interface {
	List(ctx context.Context, id types.ContentID) (types.Node, error)
}

type catalogService struct {
	mediaSource mediasource.MediaSourceIntegration
}

func (s *catalogService) List(ctx context.Context, id types.ContentID) (types.Node, error) {
	zerolog.Ctx(ctx).Debug().Str("media_content_id", id.String()).Msg("listing catalog node")

	node, err := s.mediaSource.Browse(ctx, id)
	if err != nil {
		return types.Node{}, err
	}

	children := make([]types.Node, 0, len(node.Children))
	for _, child := range node.Children {
		if child.ContentID.IsEmpty() && child.Title == "" {
			continue
		}

		children = append(children, child)
	}
	node.Children = children

	return node, nil
}

func NewCatalogService(mediaSource mediasource.MediaSourceIntegration) CatalogApi {
	return &catalogService{mediaSource: mediaSource}
}
