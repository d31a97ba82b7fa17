package app

import (
	"errors"
	"sync"

	"github.com/egfanboy/mediapire-gateway/internal/router"
)

type App struct {
	ControllerRegistry *router.ControllerRegistry
	Config             Config
}

var a *App

var o = sync.Once{}

var errNotInitialized = errors.New("app not initialized")

// InitApp loads the configuration once; later calls return the first outcome.
func InitApp(configPath string) error {
	var initErr error

	o.Do(func() {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			initErr = err
			return
		}

		a = &App{ControllerRegistry: router.NewControllerRegistry(), Config: cfg}
	})

	if initErr == nil && a == nil {
		return errNotInitialized
	}

	return initErr
}

func GetApp() *App {
	return a
}
