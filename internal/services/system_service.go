package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cargoline/api/internal/repositories"
)

// SystemServiceDeps bundles the collaborators for NewSystemService.
type SystemServiceDeps struct {
	Health      repositories.HealthRepository
	Version     string
	Environment string
}

type systemService struct {
	health      repositories.HealthRepository
	version     string
	environment string
}

func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errors.New("system service: health repository is required")
	}
	return &systemService{
		health:      deps.Health,
		version:     strings.TrimSpace(deps.Version),
		environment: strings.TrimSpace(deps.Environment),
	}, nil
}

// HealthReport collects dependency probes and stamps build metadata on the result.
func (s *systemService) HealthReport(ctx context.Context) (HealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return HealthReport{}, fmt.Errorf("system service: collect health: %w", err)
	}
	report.Version = s.version
	report.Environment = s.environment
	return report, nil
}
