package carbon

// PartialInputs is the usage draft accepted at the request boundary.
// Every field is optional; ValidateInputs decides what is missing.
type PartialInputs struct {
	TenantID              *string  `json:"tenant_id,omitempty"`
	Period                *string  `json:"period,omitempty"`
	BandwidthGB           *float64 `json:"bandwidth_gb,omitempty"`
	StorageTBMonths       *float64 `json:"storage_tb_months,omitempty"`
	BuildMinutes          *float64 `json:"build_minutes,omitempty"`
	BuildVCPUHours        *float64 `json:"build_vcpu_hours,omitempty"`
	FunctionsGBSeconds    *float64 `json:"functions_gb_seconds,omitempty"`
	UsersCount            *int     `json:"users_count,omitempty"`
	SystemsCount          *int     `json:"systems_count,omitempty"`
	CCFTScope12MarketKg   *float64 `json:"ccft_scope12_market_kg,omitempty"`
	CCFTScope12LocationKg *float64 `json:"ccft_scope12_location_kg,omitempty"`
	Notes                 *string  `json:"notes,omitempty"`
}

// Inputs is one tenant-period's usage after validation, with defaults applied.
type Inputs struct {
	// TenantID identifies the tenant. Required, never contains "/".
	TenantID string `json:"tenant_id"`

	// Period is the reporting month in "YYYY-MM" form.
	Period string `json:"period"`

	// BandwidthGB is the data transferred in gigabytes.
	BandwidthGB float64 `json:"bandwidth_gb"`

	// StorageTBMonths is the storage footprint in terabyte-months.
	StorageTBMonths *float64 `json:"storage_tb_months,omitempty"`

	// BuildMinutes is the build time consumed in minutes.
	BuildMinutes *float64 `json:"build_minutes,omitempty"`

	// BuildVCPUHours overrides the vCPU-hours derived from BuildMinutes.
	BuildVCPUHours *float64 `json:"build_vcpu_hours,omitempty"`

	// FunctionsGBSeconds is the serverless execution in GB-seconds.
	FunctionsGBSeconds *float64 `json:"functions_gb_seconds,omitempty"`

	// UsersCount is the number of users the emissions are allocated over (default 1).
	UsersCount int `json:"users_count"`

	// SystemsCount is the number of systems the emissions are allocated over (default 1).
	SystemsCount int `json:"systems_count"`

	// CCFTScope12MarketKg is the vendor-reported market-based Scope 1+2 figure in kg CO2e.
	CCFTScope12MarketKg *float64 `json:"ccft_scope12_market_kg,omitempty"`

	// CCFTScope12LocationKg is the vendor-reported location-based Scope 1+2 figure in kg CO2e.
	CCFTScope12LocationKg *float64 `json:"ccft_scope12_location_kg,omitempty"`

	// Notes is free text carried through to the report.
	Notes string `json:"notes,omitempty"`
}

// NetworkBand is the three-point network energy intensity in Wh per GB.
// Low <= Mid <= High is expected but not enforced.
type NetworkBand struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// Factors is a fully resolved set of emission factors.
//
// The three optional coefficients stay nil when the feature is not modeled;
// the calculator treats nil and zero alike, but they are kept distinct so a
// stored run records which coefficients were actually configured.
type Factors struct {
	GridIntensityKgPerKWh   float64     `json:"gridIntensityKgPerKWh"`
	PUE                     float64     `json:"pue"`
	NetworkWhPerGb          NetworkBand `json:"networkWhPerGb"`
	StorageKWhPerTbMonth    *float64    `json:"storageKWhPerTbMonth"`
	ComputeKWhPerVcpuHour   *float64    `json:"computeKWhPerVcpuHour"`
	FunctionsKWhPerGbSecond *float64    `json:"functionsKWhPerGbSecond"`
}

// NetworkBandOverrides carries caller-supplied band values; nil fields fall back.
type NetworkBandOverrides struct {
	Low  *float64 `json:"low,omitempty"`
	Mid  *float64 `json:"mid,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// FactorOverrides is the partial factor set accepted at the request boundary
// and saved as a tenant's custom factors.
type FactorOverrides struct {
	GridIntensityKgPerKWh   *float64              `json:"gridIntensityKgPerKWh,omitempty"`
	PUE                     *float64              `json:"pue,omitempty"`
	NetworkWhPerGb          *NetworkBandOverrides `json:"networkWhPerGb,omitempty"`
	StorageKWhPerTbMonth    *float64              `json:"storageKWhPerTbMonth,omitempty"`
	ComputeKWhPerVcpuHour   *float64              `json:"computeKWhPerVcpuHour,omitempty"`
	FunctionsKWhPerGbSecond *float64              `json:"functionsKWhPerGbSecond,omitempty"`
}

// Scope12Results passes the vendor Scope 1+2 figures through with per-unit allocations.
type Scope12Results struct {
	MarketKg            float64 `json:"marketKg"`
	LocationKg          float64 `json:"locationKg"`
	PerUserMarketKg     float64 `json:"perUserMarketKg"`
	PerSystemMarketKg   float64 `json:"perSystemMarketKg"`
	PerUserLocationKg   float64 `json:"perUserLocationKg"`
	PerSystemLocationKg float64 `json:"perSystemLocationKg"`
}

// Band is one sensitivity scenario of the total-chain estimate.
type Band struct {
	// Kg is the band total in kilograms CO2e.
	Kg float64 `json:"kg"`

	// PerGbG is grams CO2e per GB transferred.
	PerGbG float64 `json:"perGbG"`

	// PerUserKg is kilograms CO2e per user.
	PerUserKg float64 `json:"perUserKg"`

	// PerSystemKg is kilograms CO2e per system.
	PerSystemKg float64 `json:"perSystemKg"`
}

// TotalChainResults holds the low/mid/high bands.
type TotalChainResults struct {
	Low  Band `json:"low"`
	Mid  Band `json:"mid"`
	High Band `json:"high"`
}

// CalculationResults is the output of Calculate.
type CalculationResults struct {
	Scope12    Scope12Results    `json:"scope12"`
	TotalChain TotalChainResults `json:"totalChain"`
}

// EnergyBreakdown exposes the intermediate energy figures behind a result.
type EnergyBreakdown struct {
	// NetworkKWh is the network energy per band before PUE.
	NetworkKWh NetworkBand

	// VCPUHours is the explicit or derived build compute.
	VCPUHours float64

	// AdditionalKWh is storage + compute + functions energy before PUE.
	AdditionalKWh float64

	// AdditionalKg is the additional emissions after PUE and grid intensity.
	AdditionalKg float64

	// AdditionalIncluded reports whether AdditionalKg entered the band totals.
	AdditionalIncluded bool
}
