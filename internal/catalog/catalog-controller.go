package catalog

import (
	"bytes"
	"net/http"

	"github.com/egfanboy/mediapire-gateway/internal/identifier"
	mediasource "github.com/egfanboy/mediapire-gateway/internal/integrations/media-source"
	"github.com/egfanboy/mediapire-gateway/internal/router"
	"github.com/egfanboy/mediapire-gateway/internal/ui"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
)

const (
	pathIndex  = "/"
	pathBrowse = "/browse"
)

var queryParamContentId = router.QueryParam{
	Name:     identifier.QueryParamContentId,
	Required: false,
	Decode:   identifier.DecodeParam,
}

type catalogController struct {
	builders []func() router.RouteBuilder
	service  CatalogApi
	renderer *ui.Renderer
	rootId   types.ContentID
	basePath string
}

func (c catalogController) GetApis() (routes []router.RouteBuilder) {
	for _, b := range c.builders {
		routes = append(routes, b())
	}

	return
}

func (c catalogController) contentId(p router.RouteParams) types.ContentID {
	if id, ok := p.Params[identifier.QueryParamContentId]; ok {
		return types.ContentID(id)
	}

	return c.rootId
}

func (c catalogController) Browse() router.RouteBuilder {
	return router.NewRouteBuilder().
		SetMethod(http.MethodOptions, http.MethodGet).
		SetPath(pathBrowse).
		SetReturnCode(http.StatusOK).
		AddQueryParam(queryParamContentId).
		SetHandler(func(request *http.Request, p router.RouteParams) (interface{}, error) {
			node, err := c.service.List(request.Context(), c.contentId(p))
			if err != nil {
				return nil, mediasource.ToApiException(err)
			}

			return node, nil
		})
}

func (c catalogController) Ui() router.RouteBuilder {
	return router.NewRouteBuilder().
		SetMethod(http.MethodOptions, http.MethodGet).
		SetPath(ui.PathUi).
		SetDataType(router.DataTypeHTML).
		SetReturnCode(http.StatusOK).
		AddQueryParam(queryParamContentId).
		SetHandler(func(request *http.Request, p router.RouteParams) (interface{}, error) {
			node, err := c.service.List(request.Context(), c.contentId(p))
			if err != nil {
				return nil, mediasource.ToApiException(err)
			}

			var buf bytes.Buffer
			err = c.renderer.Render(&buf, node)
			if err != nil {
				return nil, err
			}

			return buf.Bytes(), nil
		})
}

func (c catalogController) Index() router.RouteBuilder {
	return router.NewRouteBuilder().
		SetMethod(http.MethodOptions, http.MethodGet).
		SetPath(pathIndex).
		SetDataType(router.DataTypeRedirect).
		SetReturnCode(http.StatusFound).
		AddQueryParam(queryParamContentId).
		SetHandler(func(request *http.Request, p router.RouteParams) (interface{}, error) {
			return c.basePath + ui.PathUi + "?" + identifier.Query(c.contentId(p)), nil
		})
}

type ControllerConfig struct {
	RootId   types.ContentID
	BasePath string
	UiTitle  string
}

func NewController(service CatalogApi, cfg ControllerConfig) router.Controller {
	c := catalogController{
		service:  service,
		renderer: ui.NewRenderer(cfg.BasePath, cfg.UiTitle),
		rootId:   cfg.RootId,
		basePath: cfg.BasePath,
	}

	c.builders = append(c.builders, c.Index, c.Browse, c.Ui)

	return c
}
