package runs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/hosting-emissions/internal/carbon"
	"github.com/rshade/hosting-emissions/internal/store"
)

var fixedNow = time.Date(2025, 8, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// downBackend fails every durable call.
type downBackend struct{}

func (downBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (downBackend) SetJSON(context.Context, string, []byte) error { return errors.New("down") }
func (downBackend) Delete(context.Context, string) error          { return errors.New("down") }
func (downBackend) List(context.Context, string) ([]store.ObjectInfo, error) {
	return nil, errors.New("down")
}

// tenantWriteFails rejects durable writes under tenants/ only.
type tenantWriteFails struct{ *store.MemoryBackend }

func (b tenantWriteFails) SetJSON(ctx context.Context, key string, data []byte) error {
	if key == TenantKey("acme") {
		return errors.New("tenant bucket read-only")
	}
	return b.MemoryBackend.SetJSON(ctx, key, data)
}

func newRepo(t *testing.T, backend store.Backend) *Repository {
	t.Helper()
	return NewRepository(store.New(backend), WithClock(fixedClock))
}

func scenarioRun() EmissionRun {
	inputs := carbon.Inputs{
		TenantID:              "anwb",
		Period:                "2025-07",
		BandwidthGB:           100000,
		StorageTBMonths:       carbon.Float(1.2),
		BuildMinutes:          carbon.Float(1200),
		FunctionsGBSeconds:    carbon.Float(5_000_000),
		UsersCount:            1500,
		SystemsCount:          12,
		CCFTScope12MarketKg:   carbon.Float(1800),
		CCFTScope12LocationKg: carbon.Float(2600),
		Notes:                 "July report",
	}
	return NewEmissionRun(inputs, carbon.DefaultFactors(), fixedNow.Add(-time.Hour))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "tenants/acme", TenantKey("acme"))
	assert.Equal(t, "runs/acme/2025-01", RunKey("acme", "2025-01"))
	assert.Equal(t, "runs/acme/", RunPrefix("acme"))
	assert.Equal(t, "factors/acme", FactorsKey("acme"))

	tests := []struct {
		key    string
		period string
		ok     bool
	}{
		{"runs/acme/2025-01", "2025-01", true},
		{"runs/acmecorp/2025-01", "", false},
		{"runs/acme/", "", false},
		{"runs/acme/2025-01/draft", "", false},
		{"tenants/acme", "", false},
	}
	for _, tt := range tests {
		period, ok := periodFromKey("acme", tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.period, period, tt.key)
	}
}

func TestSaveRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemoryBackend())
	run := scenarioRun()

	saved, res, err := repo.SaveRun(ctx, run)
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.Equal(t, fixedNow, saved.SavedAt)
	assert.Equal(t, SchemaVersion, saved.Version)

	got, found, err := repo.GetRun(ctx, "anwb", "2025-07")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, run.Inputs, got.Inputs)
	assert.Equal(t, run.Factors, got.Factors)
	assert.Equal(t, run.Results, got.Results)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, 1, got.Version)
}

func TestSaveRun_RoundTripThroughDurableCopy(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	run := scenarioRun()

	_, _, err := newRepo(t, backend).SaveRun(ctx, run)
	require.NoError(t, err)

	got, found, err := newRepo(t, backend).GetRun(ctx, "anwb", "2025-07")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, run.Results, got.Results)
}

func TestSaveRun_TrimsIdentifiers(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemoryBackend())
	run := scenarioRun()
	run.TenantID = " anwb\n"
	run.Period = "2025-07 "

	saved, _, err := repo.SaveRun(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, "anwb", saved.TenantID)
	assert.Equal(t, "2025-07", saved.Period)

	_, found, err := repo.GetRun(ctx, "anwb", "2025-07")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"2025-07"}, repo.ListRuns(ctx, "anwb"))
}

func TestSaveRun_ScenarioC(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemoryBackend())

	inputs := carbon.Inputs{TenantID: "acme", Period: "2025-01", BandwidthGB: 10, UsersCount: 1, SystemsCount: 1}
	_, _, err := repo.SaveRun(ctx, NewEmissionRun(inputs, carbon.DefaultFactors(), fixedNow))
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-01"}, repo.ListRuns(ctx, "acme"))
}

func TestSaveRun_OverwritesSamePeriod(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemoryBackend())

	run := scenarioRun()
	_, _, err := repo.SaveRun(ctx, run)
	require.NoError(t, err)

	run.Inputs.Notes = "restated"
	_, _, err = repo.SaveRun(ctx, run)
	require.NoError(t, err)

	got, _, err := repo.GetRun(ctx, "anwb", "2025-07")
	require.NoError(t, err)
	assert.Equal(t, "restated", got.Inputs.Notes)
	assert.Equal(t, []string{"2025-07"}, repo.ListRuns(ctx, "anwb"))
}

func TestSaveRun_Invalid(t *testing.T) {
	repo := newRepo(t, store.NewMemoryBackend())

	tests := []struct {
		name     string
		tenantID string
		period   string
	}{
		{"missing tenant", "", "2025-01"},
		{"missing period", "acme", " "},
		{"tenant with separator", "a/b", "2025-01"},
		{"period with separator", "acme", "2025/01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := repo.SaveRun(context.Background(), EmissionRun{TenantID: tt.tenantID, Period: tt.period})
			assert.ErrorIs(t, err, ErrInvalidRun)
		})
	}
}

func TestSaveRun_CreatesTenantOnce(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemoryBackend())

	_, err := repo.SaveTenant(ctx, Tenant{TenantID: "anwb", TenantName: "ANWB B.V.", ContactEmail: "ops@anwb.example"})
	require.NoError(t, err)

	_, _, err = repo.SaveRun(ctx, scenarioRun())
	require.NoError(t, err)

	tenant, found, err := repo.GetTenant(ctx, "anwb")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ANWB B.V.", tenant.TenantName, "existing tenant is left alone")
	assert.Equal(t, "ops@anwb.example", tenant.ContactEmail)
}

func TestSaveRun_ImplicitTenant(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemoryBackend())

	_, _, err := repo.SaveRun(ctx, scenarioRun())
	require.NoError(t, err)

	tenant, found, err := repo.GetTenant(ctx, "anwb")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ANWB", tenant.TenantName)
	assert.True(t, fixedNow.Equal(tenant.CreatedAt))
}

func TestSaveRun_TenantFailureDoesNotFailRun(t *testing.T) {
	ctx := context.Background()
	backend := tenantWriteFails{store.NewMemoryBackend()}
	repo := newRepo(t, backend)

	inputs := carbon.Inputs{TenantID: "acme", Period: "2025-01", BandwidthGB: 10, UsersCount: 1, SystemsCount: 1}
	_, res, err := repo.SaveRun(ctx, NewEmissionRun(inputs, carbon.DefaultFactors(), fixedNow))

	require.NoError(t, err)
	assert.True(t, res.Persisted)
	_, found, _ := repo.GetRun(ctx, "acme", "2025-01")
	assert.True(t, found)
}

func TestSaveRun_DurableDown(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, downBackend{})

	_, res, err := repo.SaveRun(ctx, scenarioRun())
	require.NoError(t, err, "a cached save is still a save")
	assert.True(t, res.Accepted)
	assert.False(t, res.Persisted)

	got, found, err := repo.GetRun(ctx, "anwb", "2025-07")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "anwb", got.TenantID)
	assert.Equal(t, []string{"2025-07"}, repo.ListRuns(ctx, "anwb"))
}

func TestGetRun_NotFound(t *testing.T) {
	repo := newRepo(t, store.NewMemoryBackend())

	run, found, err := repo.GetRun(context.Background(), "acme", "2030-01")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, run)
}

func TestListRuns_SortedAndScoped(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemoryBackend())

	for _, p := range []string{"2025-03", "2024-12", "2025-01"} {
		in := carbon.Inputs{TenantID: "acme", Period: p, BandwidthGB: 1, UsersCount: 1, SystemsCount: 1}
		_, _, err := repo.SaveRun(ctx, NewEmissionRun(in, carbon.DefaultFactors(), fixedNow))
		require.NoError(t, err)
	}
	other := carbon.Inputs{TenantID: "acmecorp", Period: "2025-02", BandwidthGB: 1, UsersCount: 1, SystemsCount: 1}
	_, _, err := repo.SaveRun(ctx, NewEmissionRun(other, carbon.DefaultFactors(), fixedNow))
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-12", "2025-01", "2025-03"}, repo.ListRuns(ctx, "acme"))
	assert.Empty(t, repo.ListRuns(ctx, "nobody"))
}

func TestCustomFactors(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemoryBackend())

	_, found, err := repo.GetCustomFactors(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, found)

	overrides := carbon.FactorOverrides{
		PUE:                  carbon.Float(1.4),
		StorageKWhPerTbMonth: carbon.Float(1.2),
		NetworkWhPerGb:       &carbon.NetworkBandOverrides{High: carbon.Float(60)},
	}
	saved, res, err := repo.SaveCustomFactors(ctx, "acme", overrides)
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.Equal(t, fixedNow, saved.UpdatedAt)

	got, found, err := repo.GetCustomFactors(ctx, "acme")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, overrides, got.Factors)

	_, _, err = repo.SaveCustomFactors(ctx, "", overrides)
	assert.ErrorIs(t, err, ErrInvalidRun)
}

func TestEffectiveFactors(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, store.NewMemoryBackend())

	_, _, err := repo.SaveCustomFactors(ctx, "acme", carbon.FactorOverrides{
		PUE:                   carbon.Float(1.4),
		GridIntensityKgPerKWh: carbon.Float(0.3),
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		tenantID string
		request  carbon.FactorOverrides
		wantPUE  float64
		wantGrid float64
	}{
		{"defaults without tenant", "", carbon.FactorOverrides{}, carbon.DefaultPUE, carbon.DefaultGridIntensityKgPerKWh},
		{"tenant custom factors", "acme", carbon.FactorOverrides{}, 1.4, 0.3},
		{"request wins over tenant", "acme", carbon.FactorOverrides{PUE: carbon.Float(1.2)}, 1.2, 0.3},
		{"unknown tenant", "other", carbon.FactorOverrides{}, carbon.DefaultPUE, carbon.DefaultGridIntensityKgPerKWh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := repo.EffectiveFactors(ctx, tt.tenantID, tt.request)
			assert.Equal(t, tt.wantPUE, f.PUE)
			assert.Equal(t, tt.wantGrid, f.GridIntensityKgPerKWh)
		})
	}
}

func TestNewEmissionRun(t *testing.T) {
	run := scenarioRun()

	assert.Equal(t, "anwb", run.TenantID)
	assert.Equal(t, "2025-07", run.Period)
	assert.Equal(t, 1800.0, run.Results.Scope12.MarketKg)
	assert.Zero(t, run.Version)
}
