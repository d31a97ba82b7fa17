package media

import (
	"errors"
	"net/http"

	"github.com/egfanboy/mediapire-common/exceptions"
	"github.com/egfanboy/mediapire-gateway/internal/identifier"
	mediasource "github.com/egfanboy/mediapire-gateway/internal/integrations/media-source"
	"github.com/egfanboy/mediapire-gateway/internal/proxy"
	"github.com/egfanboy/mediapire-gateway/internal/router"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
)

const (
	pathResolve = "/resolve"
	pathProxy   = "/proxy"
)

var queryParamContentId = router.QueryParam{
	Name:     identifier.QueryParamContentId,
	Required: true,
	Decode:   identifier.DecodeParam,
}

type mediaController struct {
	builders []func() router.RouteBuilder
	service  MediaApi
}

func (c mediaController) GetApis() (routes []router.RouteBuilder) {
	for _, b := range c.builders {
		routes = append(routes, b())
	}

	return
}

func (c mediaController) ResolveMedia() router.RouteBuilder {
	return router.NewRouteBuilder().
		SetMethod(http.MethodOptions, http.MethodGet).
		SetPath(pathResolve).
		SetReturnCode(http.StatusOK).
		AddQueryParam(queryParamContentId).
		SetHandler(func(request *http.Request, p router.RouteParams) (interface{}, error) {
			id := types.ContentID(p.Params[identifier.QueryParamContentId])

			resolved, err := c.service.ResolveMedia(request.Context(), id)
			if err != nil {
				return nil, mediasource.ToApiException(err)
			}

			return resolved, nil
		})
}

func (c mediaController) StreamMedia() router.RouteBuilder {
	return router.NewRouteBuilder().
		SetMethod(http.MethodOptions, http.MethodGet).
		SetPath(pathProxy).
		SetDataType(router.DataTypeStream).
		AddQueryParam(queryParamContentId).
		SetHandler(func(request *http.Request, p router.RouteParams) (interface{}, error) {
			id := types.ContentID(p.Params[identifier.QueryParamContentId])

			err := c.service.StreamMedia(request.Context(), p.Writer, id)
			if errors.Is(err, proxy.ErrOriginUnavailable) {
				return nil, &exceptions.ApiException{Err: proxy.ErrOriginUnavailable, StatusCode: http.StatusBadGateway}
			}

			return nil, mediasource.ToApiException(err)
		})
}

func NewController(service MediaApi) router.Controller {
	c := mediaController{service: service}

	c.builders = append(c.builders, c.ResolveMedia, c.StreamMedia)

	return c
}
