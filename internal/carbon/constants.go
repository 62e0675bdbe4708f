// Package carbon estimates hosting emissions for a tenant's monthly usage
// using a network-energy proxy for the full value chain, alongside the
// vendor-reported Scope 1+2 figures.
package carbon

const (
	// DefaultGridIntensityKgPerKWh is the global average grid carbon intensity
	// in kilograms CO2e per kWh.
	DefaultGridIntensityKgPerKWh = 0.494

	// DefaultPUE is the Power Usage Effectiveness for modern hyperscale datacenters.
	// Source: Cloud Carbon Footprint methodology.
	DefaultPUE = 1.135

	// DefaultNetworkWhPerGbLow is the conservative network energy intensity (Wh per GB transferred).
	DefaultNetworkWhPerGbLow = 10.0

	// DefaultNetworkWhPerGbMid is the mid-range network energy intensity.
	DefaultNetworkWhPerGbMid = 30.0

	// DefaultNetworkWhPerGbHigh is the high-end network energy intensity,
	// including the full network infrastructure.
	DefaultNetworkWhPerGbHigh = 72.0

	// VCPUsPerBuildMinute is the fixed number of virtual CPUs assumed for one
	// build minute when vCPU-hours are derived from build minutes.
	VCPUsPerBuildMinute = 2.0

	// MaxPlausibleBandwidthGB is the bandwidth above which an input is flagged
	// as a likely data-entry mistake (10 PB).
	MaxPlausibleBandwidthGB = 10_000_000.0

	// WhPerKWh converts watt-hours to kilowatt-hours.
	WhPerKWh = 1000.0

	// GramsPerKg converts kilograms to grams.
	GramsPerKg = 1000.0

	// MinutesPerHour converts build minutes to hours.
	MinutesPerHour = 60.0
)
