package health

import (
	"net/http"

	"github.com/egfanboy/mediapire-gateway/internal/router"
)

const PathHealth = "/health"

type healthController struct {
	builders []func() router.RouteBuilder
}

type healthStatus struct {
	Status string `json:"status"`
}

func (c healthController) GetApis() (routes []router.RouteBuilder) {
	for _, b := range c.builders {
		routes = append(routes, b())
	}

	return
}

// Health reports liveness only and never calls the backend.
func (c healthController) Health() router.RouteBuilder {
	return router.NewRouteBuilder().
		SetMethod(http.MethodOptions, http.MethodGet).
		SetPath(PathHealth).
		SetReturnCode(http.StatusOK).
		SetHandler(func(request *http.Request, p router.RouteParams) (interface{}, error) {
			return healthStatus{Status: "ok"}, nil
		})
}

func NewController() router.Controller {
	c := healthController{}

	c.builders = append(c.builders, c.Health)

	return c
}
