package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/repositories"
)

// DefaultServiceName is reported by health endpoints.
const DefaultServiceName = "SundAI Merch Shop"

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps bundles collaborators required to construct a system service. Catalog is
// optional; when set the report carries a catalog check that degrades while the cache is empty.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Catalog          CatalogService
	ServiceName      string
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	healthRepo repositories.HealthRepository
	catalog    CatalogService
	name       string
	clock      func() time.Time
	build      BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the system utility service providing health reports and metadata.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}

	return &systemService{
		healthRepo: deps.HealthRepository,
		catalog:    deps.Catalog,
		name:       chooseFirstNonEmpty(deps.ServiceName, DefaultServiceName),
		clock: func() time.Time {
			return clock().UTC()
		},
		build: build,
	}, nil
}

func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	if ctx == nil {
		return SystemHealthReport{}, errors.New("system service: context is required")
	}

	report, err := s.healthRepo.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}

	now := s.clock()
	report.Service = chooseFirstNonEmpty(report.Service, s.name)
	report.GeneratedAt = ensureTimestamp(report.GeneratedAt, now)
	report.Version = chooseFirstNonEmpty(report.Version, s.build.Version)
	report.CommitSHA = chooseFirstNonEmpty(report.CommitSHA, s.build.CommitSHA)
	report.Environment = chooseFirstNonEmpty(report.Environment, s.build.Environment)

	if report.Uptime <= 0 && !s.build.StartedAt.IsZero() {
		report.Uptime = now.Sub(s.build.StartedAt)
	}

	if len(report.Checks) == 0 {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}

	if s.catalog != nil {
		report.Checks["catalog"] = s.catalogCheck(ctx, now)
		if report.Status == domain.HealthStatusOK && report.Checks["catalog"].Status != domain.HealthStatusOK {
			report.Status = domain.HealthStatusDegraded
		}
	}

	if strings.TrimSpace(report.Status) == "" {
		report.Status = deriveStatus(report.Checks)
	}

	return report, nil
}

// catalogCheck reports on the catalog snapshot. A cold cache is loaded first.
func (s *systemService) catalogCheck(ctx context.Context, now time.Time) domain.SystemHealthCheck {
	snapshot := s.catalog.Snapshot(ctx)
	check := domain.SystemHealthCheck{
		Status:    domain.HealthStatusOK,
		Detail:    snapshot.Source,
		CheckedAt: now,
	}
	if len(snapshot.Products) == 0 {
		check.Status = domain.HealthStatusDegraded
		check.Detail = "catalog is empty"
	}
	return check
}

func ensureTimestamp(ts time.Time, fallback time.Time) time.Time {
	if ts.IsZero() {
		return fallback
	}
	return ts.UTC()
}

func chooseFirstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func deriveStatus(checks map[string]domain.SystemHealthCheck) string {
	if len(checks) == 0 {
		return domain.HealthStatusOK
	}
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusOK, "":
			continue
		case domain.HealthStatusError:
			return domain.HealthStatusError
		default:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
