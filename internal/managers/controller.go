// Package managers wires the configured result stores and controllers together.
package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/quenchfinder/internal/controllers/restserver"
	"github.com/chrissnell/quenchfinder/pkg/config"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
	Count() int
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates a new controller manager
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, c *config.ConfigData, sm *StorageManager, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		config:      c,
		storage:     sm,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	if c.Server != nil {
		controller, err := cm.createController("restserver")
		if err != nil {
			return nil, fmt.Errorf("error creating controller: %w", err)
		}
		cm.controllers = append(cm.controllers, controller)
	}

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	config      *config.ConfigData
	storage     *StorageManager
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %w", err)
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}

func (c *controllerManager) Count() int {
	return len(c.controllers)
}

// createController creates a controller by type name
func (c *controllerManager) createController(controllerType string) (Controller, error) {
	switch controllerType {
	case "restserver", "rest":
		if c.storage == nil || len(c.storage.Engines) == 0 {
			return nil, fmt.Errorf("the REST server needs at least one result store: %w", ErrNoStores)
		}
		return restserver.NewController(c.ctx, c.wg, *c.config.Server, c.storage, c.storage.Health, c.logger)
	default:
		return nil, fmt.Errorf("unknown controller type: %s", controllerType)
	}
}
