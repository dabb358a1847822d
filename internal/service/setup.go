package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/logging"
)

// SetupService sets up one driver.
type SetupService struct {
	manager DriverManager
	logger  logrus.FieldLogger
}

// NewSetupService creates a new setup service.
func NewSetupService(manager DriverManager, logger logrus.FieldLogger) *SetupService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SetupService{manager: manager, logger: logger}
}

// SetupRequest contains parameters for a single setup.
type SetupRequest struct {
	Request binary.Request
}

// Setup resolves, installs and publishes the requested driver.
func (s *SetupService) Setup(ctx context.Context, req SetupRequest) (*binary.SetupResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.WithField("request", req.Request.String()).Debug("setting up driver")
	return s.manager.SetupWithResult(ctx, req.Request)
}
