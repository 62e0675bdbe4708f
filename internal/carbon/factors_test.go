package carbon

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFactors_Defaults(t *testing.T) {
	f := ResolveFactors(FactorOverrides{})

	assert.Equal(t, 0.494, f.GridIntensityKgPerKWh)
	assert.Equal(t, 1.135, f.PUE)
	assert.Equal(t, NetworkBand{Low: 10, Mid: 30, High: 72}, f.NetworkWhPerGb)
	assert.Nil(t, f.StorageKWhPerTbMonth)
	assert.Nil(t, f.ComputeKWhPerVcpuHour)
	assert.Nil(t, f.FunctionsKWhPerGbSecond)
}

func TestResolveFactors_Overrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides FactorOverrides
		check     func(t *testing.T, f Factors)
	}{
		{
			name:      "zero is a valid override",
			overrides: FactorOverrides{GridIntensityKgPerKWh: Float(0)},
			check: func(t *testing.T, f Factors) {
				assert.Equal(t, 0.0, f.GridIntensityKgPerKWh)
				assert.Equal(t, DefaultPUE, f.PUE)
			},
		},
		{
			name: "partial band override keeps the other points",
			overrides: FactorOverrides{
				NetworkWhPerGb: &NetworkBandOverrides{High: Float(100)},
			},
			check: func(t *testing.T, f Factors) {
				assert.Equal(t, NetworkBand{Low: 10, Mid: 30, High: 100}, f.NetworkWhPerGb)
			},
		},
		{
			name:      "empty band object falls back entirely",
			overrides: FactorOverrides{NetworkWhPerGb: &NetworkBandOverrides{}},
			check: func(t *testing.T, f Factors) {
				assert.Equal(t, DefaultFactors().NetworkWhPerGb, f.NetworkWhPerGb)
			},
		},
		{
			name: "optional coefficients carried through",
			overrides: FactorOverrides{
				StorageKWhPerTbMonth:    Float(1.2),
				FunctionsKWhPerGbSecond: Float(0),
			},
			check: func(t *testing.T, f Factors) {
				require.NotNil(t, f.StorageKWhPerTbMonth)
				assert.Equal(t, 1.2, *f.StorageKWhPerTbMonth)
				require.NotNil(t, f.FunctionsKWhPerGbSecond)
				assert.Equal(t, 0.0, *f.FunctionsKWhPerGbSecond)
				assert.Nil(t, f.ComputeKWhPerVcpuHour)
			},
		},
		{
			name: "pue and grid",
			overrides: FactorOverrides{
				GridIntensityKgPerKWh: Float(0.2),
				PUE:                   Float(1.4),
			},
			check: func(t *testing.T, f Factors) {
				assert.Equal(t, 0.2, f.GridIntensityKgPerKWh)
				assert.Equal(t, 1.4, f.PUE)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ResolveFactors(tt.overrides))
		})
	}
}

func TestResolveFactors_DoesNotAliasOverrides(t *testing.T) {
	storage := 1.0
	f := ResolveFactors(FactorOverrides{StorageKWhPerTbMonth: &storage})
	storage = 9

	require.NotNil(t, f.StorageKWhPerTbMonth)
	assert.Equal(t, 1.0, *f.StorageKWhPerTbMonth)
}

func TestResolveFactors_Idempotent(t *testing.T) {
	tests := []struct {
		name    string
		factors Factors
	}{
		{"defaults", DefaultFactors()},
		{
			name: "fully specified",
			factors: Factors{
				GridIntensityKgPerKWh:   0.3,
				PUE:                     1.2,
				NetworkWhPerGb:          NetworkBand{Low: 5, Mid: 6, High: 7},
				StorageKWhPerTbMonth:    Float(1.1),
				ComputeKWhPerVcpuHour:   Float(0.02),
				FunctionsKWhPerGbSecond: Float(0.000003),
			},
		},
		{
			name: "zeros",
			factors: Factors{
				NetworkWhPerGb: NetworkBand{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := ResolveFactors(tt.factors.Overrides())
			twice := ResolveFactors(once.Overrides())

			assert.Equal(t, tt.factors, once)
			assert.Equal(t, once, twice)
		})
	}
}

func TestFactorOverrides_Merge(t *testing.T) {
	request := FactorOverrides{
		PUE:            Float(1.3),
		NetworkWhPerGb: &NetworkBandOverrides{High: Float(90)},
	}
	tenant := FactorOverrides{
		PUE:                   Float(1.5),
		GridIntensityKgPerKWh: Float(0.1),
		NetworkWhPerGb:        &NetworkBandOverrides{Low: Float(8), High: Float(60)},
		StorageKWhPerTbMonth:  Float(1.2),
	}

	f := ResolveFactors(request.Merge(tenant))

	assert.Equal(t, 1.3, f.PUE)
	assert.Equal(t, 0.1, f.GridIntensityKgPerKWh)
	assert.Equal(t, NetworkBand{Low: 8, Mid: 30, High: 90}, f.NetworkWhPerGb)
	require.NotNil(t, f.StorageKWhPerTbMonth)
	assert.Equal(t, 1.2, *f.StorageKWhPerTbMonth)
}

func TestFactorOverrides_MergeWithoutBands(t *testing.T) {
	merged := FactorOverrides{PUE: Float(1.2)}.Merge(FactorOverrides{})
	assert.Nil(t, merged.NetworkWhPerGb)
}

func TestFactorOverrides_IsZero(t *testing.T) {
	assert.True(t, FactorOverrides{}.IsZero())
	assert.True(t, FactorOverrides{NetworkWhPerGb: &NetworkBandOverrides{}}.IsZero())
	assert.False(t, FactorOverrides{PUE: Float(1)}.IsZero())
	assert.False(t, FactorOverrides{NetworkWhPerGb: &NetworkBandOverrides{Mid: Float(1)}}.IsZero())
}

func TestValidateFactors(t *testing.T) {
	tests := []struct {
		name      string
		factors   Factors
		wantErrs  int
		wantWarns int
	}{
		{"defaults", DefaultFactors(), 0, 0},
		{
			name:     "zero grid intensity",
			factors:  ResolveFactors(FactorOverrides{GridIntensityKgPerKWh: Float(0)}),
			wantErrs: 1,
		},
		{
			name:     "pue below one",
			factors:  ResolveFactors(FactorOverrides{PUE: Float(0.9)}),
			wantErrs: 1,
		},
		{
			name: "negative band point is also unordered",
			factors: ResolveFactors(FactorOverrides{
				NetworkWhPerGb: &NetworkBandOverrides{Mid: Float(-1)},
			}),
			wantErrs:  1,
			wantWarns: 1,
		},
		{
			name: "unordered band is a warning",
			factors: ResolveFactors(FactorOverrides{
				NetworkWhPerGb: &NetworkBandOverrides{Low: Float(50)},
			}),
			wantWarns: 1,
		},
		{
			name:     "negative coefficient",
			factors:  ResolveFactors(FactorOverrides{ComputeKWhPerVcpuHour: Float(-0.1)}),
			wantErrs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, warns := SplitIssues(ValidateFactors(tt.factors))
			assert.Len(t, errs, tt.wantErrs, "errors: %v", errs)
			assert.Len(t, warns, tt.wantWarns, "warnings: %v", warns)
		})
	}
}

func TestFactors_JSONShape(t *testing.T) {
	data, err := json.Marshal(DefaultFactors())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"gridIntensityKgPerKWh": 0.494,
		"pue": 1.135,
		"networkWhPerGb": {"low": 10, "mid": 30, "high": 72},
		"storageKWhPerTbMonth": null,
		"computeKWhPerVcpuHour": null,
		"functionsKWhPerGbSecond": null
	}`, string(data))
}
