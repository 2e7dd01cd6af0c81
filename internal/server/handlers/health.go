package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/namelens/orgmatch/internal/errors"
	"github.com/namelens/orgmatch/internal/metrics"
)

// Check results.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the liveness, readiness and startup probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is implemented by components the server depends on, such
// as the token-index store.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

type probe struct {
	name    string
	timeout time.Duration
	failure string
}

var (
	aggregateProbe = probe{"aggregate", 5 * time.Second, "aggregate health check failed"}
	liveProbe      = probe{"live", 2 * time.Second, "liveness probe failed"}
	readyProbe     = probe{"ready", 5 * time.Second, "readiness probe failed"}
	startupProbe   = probe{"startup", 3 * time.Second, "startup probe failed"}
)

// HealthManager runs registered checks for the health endpoints.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
}

// NewHealthManager creates a manager reporting version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{checkers: make(map[string]HealthChecker), version: version}
}

// RegisterChecker adds or replaces the check called name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// runChecks calls every checker concurrently. A checker still running when
// ctx expires is reported as timed out.
func (hm *HealthManager) runChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, c := range hm.checkers {
		checkers[name] = c
	}
	hm.mu.RUnlock()

	var mu sync.Mutex
	results := make(map[string]string, len(checkers))
	var g errgroup.Group
	for name, checker := range checkers {
		g.Go(func() error {
			start := time.Now()
			done := make(chan error, 1)
			go func() { done <- checker.CheckHealth(ctx) }()

			status := StatusHealthy
			select {
			case err := <-done:
				if err != nil {
					status = StatusUnhealthy
				}
				metrics.RecordHealthCheck(name, err == nil, time.Since(start))
			case <-ctx.Done():
				status = StatusTimeout
				metrics.RecordHealthCheck(name, false, time.Since(start))
			}

			mu.Lock()
			results[name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// overallStatus folds check results: any unhealthy check wins, then any
// degraded or timed-out check.
func overallStatus(checks map[string]string) string {
	status := StatusHealthy
	for _, s := range checks {
		switch s {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			status = StatusDegraded
		}
	}
	return status
}

func (hm *HealthManager) serve(w http.ResponseWriter, r *http.Request, p probe) {
	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	checks := hm.runChecks(ctx)
	status := overallStatus(checks)
	if status == StatusUnhealthy {
		apperrors.RespondWithError(w, r, healthEnvelope(p, status, checks))
		return
	}

	var body any = ProbeResponse{Status: status, Timestamp: time.Now().UTC()}
	if p == aggregateProbe {
		body = HealthResponse{
			Status:    status,
			Version:   hm.version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// HealthHandler reports every check with the service version.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, aggregateProbe)
}

// LivenessHandler answers the liveness probe.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, liveProbe)
}

// ReadinessHandler answers the readiness probe.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, readyProbe)
}

// StartupHandler answers the startup probe.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, startupProbe)
}

func healthEnvelope(p probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	details := map[string]interface{}{"status": status, "probe": p.name}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", p.failure).WithDetails(details)

	var failing []string
	for name, result := range checks {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)
	ctxData := map[string]interface{}{"status": status, "probe": p.name}
	if len(failing) > 0 {
		ctxData["unhealthy_checks"] = failing
	}
	envelope, _ = envelope.WithContext(ctxData)
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager installs the manager used by the package-level handlers.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the installed manager, or nil.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func globalProbe(p probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hm := globalHealthManager; hm != nil {
			hm.serve(w, r, p)
			return
		}
		apperrors.RespondWithError(w, r, errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "health manager not initialized").
			WithDetails(map[string]interface{}{"status": "unknown", "probe": p.name}))
	}
}

// Package-level probes backed by the installed manager.
var (
	HealthHandler    = globalProbe(aggregateProbe)
	LivenessHandler  = globalProbe(liveProbe)
	ReadinessHandler = globalProbe(readyProbe)
	StartupHandler   = globalProbe(startupProbe)
)
