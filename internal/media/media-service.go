package media

import (
	"context"
	"net/http"

	mediasource "github.com/egfanboy/mediapire-gateway/internal/integrations/media-source"
	"github.com/egfanboy/mediapire-gateway/internal/proxy"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
	"github.com/rs/zerolog"
)

type MediaApi interface {
	ResolveMedia(ctx context.Context, id types.ContentID) (types.ResolvedMedia, error)
	StreamMedia(ctx context.Context, w http.ResponseWriter, id types.ContentID) error
}

type mediaService struct {
	mediaSource mediasource.MediaSourceIntegration
	streamer    *proxy.Streamer
}

func (s *mediaService) ResolveMedia(ctx context.Context, id types.ContentID) (types.ResolvedMedia, error) {
	zerolog.Ctx(ctx).Info().Str("media_content_id", id.String()).Msg("resolving media")

	return s.mediaSource.Resolve(ctx, id)
}

// StreamMedia only returns before writing to w when the stream could not be opened.
func (s *mediaService) StreamMedia(ctx context.Context, w http.ResponseWriter, id types.ContentID) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("media_content_id", id.String()).Msg("streaming media")

	stream, err := s.streamer.Open(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to open stream for %s", id)
		return err
	}

	written, err := stream.Relay(w)
	if err != nil {
		return err
	}

	logger.Info().Int("status", stream.StatusCode).Int64("bytes", written).Msg("media streamed")

	return nil
}

func NewMediaService(mediaSource mediasource.MediaSourceIntegration, streamer *proxy.Streamer) MediaApi {
	return &mediaService{mediaSource: mediaSource, streamer: streamer}
}
