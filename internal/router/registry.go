package router

import (
	"sync"

	"github.com/gorilla/mux"
)

type ControllerRegistry struct {
	mu          sync.Mutex
	controllers []Controller
}

func NewControllerRegistry() *ControllerRegistry {
	return &ControllerRegistry{}
}

func (r *ControllerRegistry) Register(c Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.controllers = append(r.controllers, c)
}

func (r *ControllerRegistry) GetControllers() []Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Controller(nil), r.controllers...)
}

// BuildAll mounts every registered route on m.
func (r *ControllerRegistry) BuildAll(m *mux.Router) {
	for _, c := range r.GetControllers() {
		for _, b := range c.GetApis() {
			b.Build(m)
		}
	}
}
