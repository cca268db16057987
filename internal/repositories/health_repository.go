package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
)

const defaultProbeTimeout = 1500 * time.Millisecond

// DependencyProbe pings one backing service. Failures of a non-critical probe only degrade the
// report; a failing critical probe marks the whole service as erroring.
type DependencyProbe struct {
	Name     string
	Critical bool
	Timeout  time.Duration
	Ping     func(context.Context) error
}

// ProbeHealthOption customises the probe-backed health repository.
type ProbeHealthOption func(*probeHealthRepository)

// WithProbeTimeout overrides the timeout applied when a probe omits its own.
func WithProbeTimeout(timeout time.Duration) ProbeHealthOption {
	return func(repo *probeHealthRepository) {
		if timeout > 0 {
			repo.timeout = timeout
		}
	}
}

// WithProbeClock injects a custom clock primarily for tests.
func WithProbeClock(clock func() time.Time) ProbeHealthOption {
	return func(repo *probeHealthRepository) {
		if clock != nil {
			repo.now = clock
		}
	}
}

type probeHealthRepository struct {
	probes  []DependencyProbe
	timeout time.Duration
	now     func() time.Time
}

var _ HealthRepository = (*probeHealthRepository)(nil)

// NewProbeHealthRepository validates the probe set. An empty set is allowed and always reports ok
// so the in-memory configuration stays ready.
func NewProbeHealthRepository(probes []DependencyProbe, opts ...ProbeHealthOption) (HealthRepository, error) {
	seen := make(map[string]struct{}, len(probes))
	for _, probe := range probes {
		name := strings.TrimSpace(probe.Name)
		if name == "" {
			return nil, errors.New("health repository: probe name is required")
		}
		if probe.Ping == nil {
			return nil, fmt.Errorf("health repository: probe %s has no ping function", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("health repository: duplicate probe %s", name)
		}
		seen[name] = struct{}{}
	}

	repo := &probeHealthRepository{
		probes:  append([]DependencyProbe(nil), probes...),
		timeout: defaultProbeTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

// Collect runs every probe concurrently and folds the results into a report.
func (r *probeHealthRepository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	results := make(map[string]domain.SystemHealthCheck, len(r.probes))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, probe := range r.probes {
		wg.Add(1)
		go func(probe DependencyProbe) {
			defer wg.Done()
			check := r.run(ctx, probe)
			mu.Lock()
			results[probe.Name] = check
			mu.Unlock()
		}(probe)
	}
	wg.Wait()

	status := domain.HealthStatusOK
	for _, probe := range r.probes {
		switch results[probe.Name].Status {
		case domain.HealthStatusOK:
		case domain.HealthStatusError:
			if probe.Critical {
				status = domain.HealthStatusError
			} else if status == domain.HealthStatusOK {
				status = domain.HealthStatusDegraded
			}
		default:
			if status == domain.HealthStatusOK {
				status = domain.HealthStatusDegraded
			}
		}
	}

	return domain.SystemHealthReport{
		Status:      status,
		Checks:      results,
		GeneratedAt: r.now(),
	}, nil
}

func (r *probeHealthRepository) run(ctx context.Context, probe DependencyProbe) domain.SystemHealthCheck {
	timeout := probe.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := r.now()
	err := probe.Ping(probeCtx)
	if err == nil && probeCtx.Err() != nil {
		err = probeCtx.Err()
	}
	end := r.now()

	check := domain.SystemHealthCheck{
		Status:    domain.HealthStatusOK,
		Detail:    "ok",
		Latency:   end.Sub(start),
		CheckedAt: end,
	}
	if err == nil {
		return check
	}
	check.Error = err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		check.Status = domain.HealthStatusError
		check.Detail = "timeout"
	case errors.Is(err, context.Canceled):
		check.Status = domain.HealthStatusError
		check.Detail = "cancelled"
	case probe.Critical:
		check.Status = domain.HealthStatusError
		check.Detail = "unavailable"
	default:
		check.Status = domain.HealthStatusDegraded
		check.Detail = "unavailable"
	}
	return check
}
