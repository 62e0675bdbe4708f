package runs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/hosting-emissions/internal/carbon"
	"github.com/rshade/hosting-emissions/internal/store"
)

// ErrInvalidRun is returned when a record lacks the identifiers its key is
// built from.
var ErrInvalidRun = errors.New("invalid run")

// Repository stores runs, tenants and custom factors in a store.Store.
// Not-found is reported as found=false with a nil error.
type Repository struct {
	store  *store.Store
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces time.Now for saved_at, created_at and updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Repository) { r.logger = logger }
}

// NewRepository creates a Repository over s.
func NewRepository(s *store.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  s,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveRun stamps saved_at and the schema version and writes the run.
// Surrounding whitespace is trimmed from the tenant id and period.
//
// The tenant record is created afterwards if it does not exist. That step
// is best effort: its failures are logged and never fail the save. It runs
// after the run write because writing a run evicts the tenant's cache entry.
//
// The returned WriteResult reports whether the run reached the durable
// backend. A run that is only cached is still saved.
func (r *Repository) SaveRun(ctx context.Context, run EmissionRun) (EmissionRun, store.WriteResult, error) {
	run.TenantID = strings.TrimSpace(run.TenantID)
	run.Period = strings.TrimSpace(run.Period)
	if err := checkID(run.TenantID); err != nil {
		return run, store.WriteResult{}, err
	}
	if run.Period == "" || strings.Contains(run.Period, "/") {
		return run, store.WriteResult{}, fmt.Errorf("%w: period is required and must not contain '/'", ErrInvalidRun)
	}

	now := r.now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.SavedAt = now
	run.Version = SchemaVersion

	key := RunKey(run.TenantID, run.Period)
	res := r.store.Set(ctx, key, run)
	if !res.Accepted {
		return run, res, fmt.Errorf("save run %s: %w", key, res.Err)
	}

	log := r.logger.With().Str("tenant_id", run.TenantID).Str("period", run.Period).Logger()
	if res.Persisted {
		log.Info().Msg("run saved")
	} else {
		log.Warn().Err(res.Err).Msg("run saved to cache only")
	}

	r.ensureTenant(ctx, run.TenantID, now)
	return run, res, nil
}

func (r *Repository) ensureTenant(ctx context.Context, tenantID string, now time.Time) {
	_, found, err := r.GetTenant(ctx, tenantID)
	if err != nil {
		r.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("tenant lookup failed, skipping implicit create")
		return
	}
	if found {
		return
	}

	res, err := r.SaveTenant(ctx, Tenant{
		TenantID:   tenantID,
		TenantName: DefaultTenantName(tenantID),
		CreatedAt:  now,
	})
	if err != nil || !res.Persisted {
		r.logger.Warn().Err(errors.Join(err, res.Err)).Str("tenant_id", tenantID).Msg("tenant not persisted")
	}
}

// GetRun returns the run for tenantID and period.
func (r *Repository) GetRun(ctx context.Context, tenantID, period string) (*EmissionRun, bool, error) {
	var run EmissionRun
	found, err := r.store.GetJSON(ctx, RunKey(tenantID, period), &run)
	if err != nil || !found {
		return nil, found, err
	}
	return &run, true, nil
}

// ListRuns returns the tenant's saved periods in ascending order.
func (r *Repository) ListRuns(ctx context.Context, tenantID string) []string {
	entries := r.store.List(ctx, RunPrefix(tenantID))

	periods := make([]string, 0, len(entries))
	for _, e := range entries {
		if period, ok := periodFromKey(tenantID, e.Key); ok {
			periods = append(periods, period)
		}
	}
	sort.Strings(periods)
	return periods
}

// SaveTenant writes t, stamping updated_at and, when unset, created_at.
func (r *Repository) SaveTenant(ctx context.Context, t Tenant) (store.WriteResult, error) {
	if err := checkID(t.TenantID); err != nil {
		return store.WriteResult{}, err
	}

	now := r.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.TenantName == "" {
		t.TenantName = DefaultTenantName(t.TenantID)
	}
	t.UpdatedAt = now

	key := TenantKey(t.TenantID)
	res := r.store.Set(ctx, key, t)
	if !res.Accepted {
		return res, fmt.Errorf("save tenant %s: %w", key, res.Err)
	}
	return res, nil
}

// GetTenant returns the tenant record.
func (r *Repository) GetTenant(ctx context.Context, tenantID string) (*Tenant, bool, error) {
	var t Tenant
	found, err := r.store.GetJSON(ctx, TenantKey(tenantID), &t)
	if err != nil || !found {
		return nil, found, err
	}
	return &t, true, nil
}

// SaveCustomFactors replaces the tenant's factor overrides.
func (r *Repository) SaveCustomFactors(ctx context.Context, tenantID string, overrides carbon.FactorOverrides) (CustomFactors, store.WriteResult, error) {
	cf := CustomFactors{TenantID: tenantID, Factors: overrides}
	if err := checkID(tenantID); err != nil {
		return cf, store.WriteResult{}, err
	}
	cf.UpdatedAt = r.now().UTC()

	key := FactorsKey(tenantID)
	res := r.store.Set(ctx, key, cf)
	if !res.Accepted {
		return cf, res, fmt.Errorf("save custom factors %s: %w", key, res.Err)
	}
	return cf, res, nil
}

// GetCustomFactors returns the tenant's saved factor overrides.
func (r *Repository) GetCustomFactors(ctx context.Context, tenantID string) (*CustomFactors, bool, error) {
	var cf CustomFactors
	found, err := r.store.GetJSON(ctx, FactorsKey(tenantID), &cf)
	if err != nil || !found {
		return nil, found, err
	}
	return &cf, true, nil
}

// EffectiveFactors resolves the factors a calculation for tenantID should
// use: request overrides first, then the tenant's custom factors, then the
// built-in defaults. An unreadable custom factors record is logged and
// skipped.
func (r *Repository) EffectiveFactors(ctx context.Context, tenantID string, request carbon.FactorOverrides) carbon.Factors {
	if tenantID == "" {
		return carbon.ResolveFactors(request)
	}

	cf, found, err := r.GetCustomFactors(ctx, tenantID)
	if err != nil {
		r.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("ignoring unreadable custom factors")
		return carbon.ResolveFactors(request)
	}
	if !found {
		return carbon.ResolveFactors(request)
	}
	return carbon.ResolveFactors(request.Merge(cf.Factors))
}

func checkID(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant_id is required", ErrInvalidRun)
	}
	if strings.Contains(tenantID, "/") {
		return fmt.Errorf("%w: tenant_id must not contain '/'", ErrInvalidRun)
	}
	return nil
}
