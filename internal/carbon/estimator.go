package carbon

import "math"

// Calculate estimates the emissions for one tenant-period.
//
// The calculation follows a network-energy proxy for the total chain:
//  1. Network energy (kWh) per band = Bandwidth_GB × Wh_per_GB[band] / 1000
//  2. Network emissions (kg) per band = Energy × PUE × Grid intensity
//  3. Additional emissions (kg) = (Storage_TB_months × storage coefficient
//     + vCPU_hours × compute coefficient + Functions_GB_s × functions coefficient)
//     × PUE × Grid intensity, computed once for all bands
//  4. Additional emissions enter every band total only when the storage
//     coefficient is configured (set and non-zero)
//  5. Per-unit allocations divide each band total by users, systems and GB,
//     every denominator floored at 1
//  6. Scope 1+2 vendor figures pass through unadjusted with per-user and
//     per-system allocations
//
// Calculate is pure and deterministic. Inputs must have passed
// ValidateInputs; behavior on unvalidated inputs is undefined.
// No rounding is applied.
func Calculate(inputs Inputs, factors Factors) CalculationResults {
	breakdown := Breakdown(inputs, factors)

	additional := 0.0
	if breakdown.AdditionalIncluded {
		additional = breakdown.AdditionalKg
	}

	band := func(networkKWh float64) Band {
		totalKg := emissionsKg(networkKWh, factors) + additional
		return allocateBand(totalKg, inputs)
	}

	return CalculationResults{
		Scope12: scope12(inputs),
		TotalChain: TotalChainResults{
			Low:  band(breakdown.NetworkKWh.Low),
			Mid:  band(breakdown.NetworkKWh.Mid),
			High: band(breakdown.NetworkKWh.High),
		},
	}
}

// Breakdown returns the intermediate energy figures Calculate works from.
func Breakdown(inputs Inputs, factors Factors) EnergyBreakdown {
	bandwidth := inputs.BandwidthGB

	vcpuHours := VCPUHours(inputs)
	storageKWh := valueOf(inputs.StorageTBMonths) * valueOf(factors.StorageKWhPerTbMonth)
	computeKWh := vcpuHours * valueOf(factors.ComputeKWhPerVcpuHour)
	functionsKWh := valueOf(inputs.FunctionsGBSeconds) * valueOf(factors.FunctionsKWhPerGbSecond)
	additionalKWh := storageKWh + computeKWh + functionsKWh

	return EnergyBreakdown{
		NetworkKWh: NetworkBand{
			Low:  NetworkEnergyKWh(bandwidth, factors.NetworkWhPerGb.Low),
			Mid:  NetworkEnergyKWh(bandwidth, factors.NetworkWhPerGb.Mid),
			High: NetworkEnergyKWh(bandwidth, factors.NetworkWhPerGb.High),
		},
		VCPUHours:          vcpuHours,
		AdditionalKWh:      additionalKWh,
		AdditionalKg:       emissionsKg(additionalKWh, factors),
		AdditionalIncluded: valueOf(factors.StorageKWhPerTbMonth) != 0,
	}
}

// NetworkEnergyKWh converts transferred gigabytes to kWh at whPerGb.
func NetworkEnergyKWh(bandwidthGB, whPerGb float64) float64 {
	return bandwidthGB * whPerGb / WhPerKWh
}

// VCPUHours returns the explicit build vCPU-hours, or derives them from
// build minutes assuming VCPUsPerBuildMinute.
func VCPUHours(inputs Inputs) float64 {
	if inputs.BuildVCPUHours != nil {
		return *inputs.BuildVCPUHours
	}
	return VCPUHoursFromMinutes(valueOf(inputs.BuildMinutes))
}

// VCPUHoursFromMinutes converts build minutes to vCPU-hours.
func VCPUHoursFromMinutes(minutes float64) float64 {
	if minutes == 0 {
		return 0
	}
	return minutes / MinutesPerHour * VCPUsPerBuildMinute
}

func emissionsKg(kWh float64, factors Factors) float64 {
	return kWh * factors.PUE * factors.GridIntensityKgPerKWh
}

func allocateBand(totalKg float64, inputs Inputs) Band {
	users := floorOne(float64(inputs.UsersCount))
	systems := floorOne(float64(inputs.SystemsCount))
	bandwidth := floorOne(inputs.BandwidthGB)

	return Band{
		Kg:          totalKg,
		PerGbG:      totalKg * GramsPerKg / bandwidth,
		PerUserKg:   totalKg / users,
		PerSystemKg: totalKg / systems,
	}
}

func scope12(inputs Inputs) Scope12Results {
	users := floorOne(float64(inputs.UsersCount))
	systems := floorOne(float64(inputs.SystemsCount))
	market := valueOf(inputs.CCFTScope12MarketKg)
	location := valueOf(inputs.CCFTScope12LocationKg)

	return Scope12Results{
		MarketKg:            market,
		LocationKg:          location,
		PerUserMarketKg:     market / users,
		PerSystemMarketKg:   market / systems,
		PerUserLocationKg:   location / users,
		PerSystemLocationKg: location / systems,
	}
}

func floorOne(v float64) float64 {
	return math.Max(v, 1)
}

func valueOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
