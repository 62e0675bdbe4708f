package carbon

import "fmt"

// DefaultFactors returns the built-in factor set. The optional coefficients
// are absent: storage, compute and functions energy are not modeled yet.
func DefaultFactors() Factors {
	return Factors{
		GridIntensityKgPerKWh: DefaultGridIntensityKgPerKWh,
		PUE:                   DefaultPUE,
		NetworkWhPerGb: NetworkBand{
			Low:  DefaultNetworkWhPerGbLow,
			Mid:  DefaultNetworkWhPerGbMid,
			High: DefaultNetworkWhPerGbHigh,
		},
	}
}

// ResolveFactors fills every missing factor from DefaultFactors.
//
// A caller-supplied value always wins, including 0. Band fields resolve
// independently, so overriding only High keeps the default Low and Mid.
// ResolveFactors never fails.
func ResolveFactors(o FactorOverrides) Factors {
	f := DefaultFactors()

	if o.GridIntensityKgPerKWh != nil {
		f.GridIntensityKgPerKWh = *o.GridIntensityKgPerKWh
	}
	if o.PUE != nil {
		f.PUE = *o.PUE
	}
	if band := o.NetworkWhPerGb; band != nil {
		if band.Low != nil {
			f.NetworkWhPerGb.Low = *band.Low
		}
		if band.Mid != nil {
			f.NetworkWhPerGb.Mid = *band.Mid
		}
		if band.High != nil {
			f.NetworkWhPerGb.High = *band.High
		}
	}
	f.StorageKWhPerTbMonth = copyFloat(o.StorageKWhPerTbMonth)
	f.ComputeKWhPerVcpuHour = copyFloat(o.ComputeKWhPerVcpuHour)
	f.FunctionsKWhPerGbSecond = copyFloat(o.FunctionsKWhPerGbSecond)

	return f
}

// Overrides converts a resolved factor set back into a fully specified
// override set, so ResolveFactors(f.Overrides()) == f.
func (f Factors) Overrides() FactorOverrides {
	return FactorOverrides{
		GridIntensityKgPerKWh: Float(f.GridIntensityKgPerKWh),
		PUE:                   Float(f.PUE),
		NetworkWhPerGb: &NetworkBandOverrides{
			Low:  Float(f.NetworkWhPerGb.Low),
			Mid:  Float(f.NetworkWhPerGb.Mid),
			High: Float(f.NetworkWhPerGb.High),
		},
		StorageKWhPerTbMonth:    copyFloat(f.StorageKWhPerTbMonth),
		ComputeKWhPerVcpuHour:   copyFloat(f.ComputeKWhPerVcpuHour),
		FunctionsKWhPerGbSecond: copyFloat(f.FunctionsKWhPerGbSecond),
	}
}

// Merge layers o over fallback field by field: a value set in o wins,
// otherwise the fallback's value (possibly nil) is used.
func (o FactorOverrides) Merge(fallback FactorOverrides) FactorOverrides {
	merged := FactorOverrides{
		GridIntensityKgPerKWh:   firstFloat(o.GridIntensityKgPerKWh, fallback.GridIntensityKgPerKWh),
		PUE:                     firstFloat(o.PUE, fallback.PUE),
		StorageKWhPerTbMonth:    firstFloat(o.StorageKWhPerTbMonth, fallback.StorageKWhPerTbMonth),
		ComputeKWhPerVcpuHour:   firstFloat(o.ComputeKWhPerVcpuHour, fallback.ComputeKWhPerVcpuHour),
		FunctionsKWhPerGbSecond: firstFloat(o.FunctionsKWhPerGbSecond, fallback.FunctionsKWhPerGbSecond),
	}

	if o.NetworkWhPerGb == nil && fallback.NetworkWhPerGb == nil {
		return merged
	}
	var top, bottom NetworkBandOverrides
	if o.NetworkWhPerGb != nil {
		top = *o.NetworkWhPerGb
	}
	if fallback.NetworkWhPerGb != nil {
		bottom = *fallback.NetworkWhPerGb
	}
	merged.NetworkWhPerGb = &NetworkBandOverrides{
		Low:  firstFloat(top.Low, bottom.Low),
		Mid:  firstFloat(top.Mid, bottom.Mid),
		High: firstFloat(top.High, bottom.High),
	}
	return merged
}

// IsZero reports whether no override is set.
func (o FactorOverrides) IsZero() bool {
	if o.GridIntensityKgPerKWh != nil || o.PUE != nil ||
		o.StorageKWhPerTbMonth != nil || o.ComputeKWhPerVcpuHour != nil ||
		o.FunctionsKWhPerGbSecond != nil {
		return false
	}
	band := o.NetworkWhPerGb
	return band == nil || (band.Low == nil && band.Mid == nil && band.High == nil)
}

// ValidateFactors reports factor shape problems for a resolved set.
// A band that is not non-decreasing is only a warning.
func ValidateFactors(f Factors) []string {
	var issues []string

	if f.GridIntensityKgPerKWh <= 0 {
		issues = append(issues, "Grid intensity must be positive")
	}
	if f.PUE < 1 {
		issues = append(issues, "PUE must be at least 1")
	}

	bands := []struct {
		name  string
		value float64
	}{
		{"low", f.NetworkWhPerGb.Low},
		{"mid", f.NetworkWhPerGb.Mid},
		{"high", f.NetworkWhPerGb.High},
	}
	for _, b := range bands {
		if b.value < 0 {
			issues = append(issues, fmt.Sprintf("Network energy (%s) must be non-negative", b.name))
		}
	}

	coefficients := []struct {
		name  string
		value *float64
	}{
		{"Storage coefficient", f.StorageKWhPerTbMonth},
		{"Compute coefficient", f.ComputeKWhPerVcpuHour},
		{"Functions coefficient", f.FunctionsKWhPerGbSecond},
	}
	for _, c := range coefficients {
		if c.value != nil && *c.value < 0 {
			issues = append(issues, c.name+" must be non-negative")
		}
	}

	band := f.NetworkWhPerGb
	if band.Low > band.Mid || band.Mid > band.High {
		issues = append(issues, WarningPrefix+"Network energy band is not ordered low <= mid <= high")
	}

	return issues
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return copyFloat(v)
		}
	}
	return nil
}
