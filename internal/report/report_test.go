package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/hosting-emissions/internal/carbon"
	"github.com/rshade/hosting-emissions/internal/runs"
)

func sampleRun() runs.EmissionRun {
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
		Notes:                 "Includes the summer campaign.",
	}
	return runs.NewEmissionRun(inputs, carbon.DefaultFactors(), time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		v        float64
		decimals int
		want     string
	}{
		{1800, 1, "1,800.0"},
		{1682.0727, 1, "1,682.1"},
		{1.2, 2, "1.20"},
		{100000, 0, "100,000"},
		{0, 2, "0.00"},
		{5, -1, "5"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.v, tt.decimals), "v=%v decimals=%d", tt.v, tt.decimals)
	}
	assert.Equal(t, "2,600.0", FormatKg(2600))
	assert.Equal(t, "0.35", FormatUnit(0.3456))
}

func TestFormatFactor(t *testing.T) {
	assert.Equal(t, "30", formatFactor(30))
	assert.Equal(t, "0.494", formatFactor(0.494))
	assert.Equal(t, "1.135", formatFactor(1.135))
	assert.Equal(t, "not set", formatOptionalFactor(nil))
	assert.Equal(t, "0", formatOptionalFactor(carbon.Float(0)))
}

func TestRender(t *testing.T) {
	run := sampleRun()
	var buf bytes.Buffer

	require.NoError(t, Render(&buf, run, nil))
	out := buf.String()

	for _, want := range []string{
		"Emissions Report: ANWB (2025-07)",
		"Generated on 1 August 2025",
		"Executive Summary",
		"Total network emissions (mid-range estimate): " + FormatKg(run.Results.TotalChain.Mid.Kg) + " kg CO2e",
		"Scope 1+2 (CCFT): 1,800.0 kg CO2e (market-based)",
		"Scope 1+2 Emissions",
		"2,600.0 kg CO2e",
		"Total Chain Emissions (Proxy)",
		"Low estimate",
		"High estimate",
		"100,000",
		"TB-months",
		"5,000,000",
		"0.494",
		"1.135",
		"not set",
		"Notes",
		"Includes the summer campaign.",
		"Methodology",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRender_TenantName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleRun(), &runs.Tenant{TenantID: "anwb", TenantName: "ANWB B.V."}))

	assert.Contains(t, buf.String(), "Emissions Report: ANWB B.V. (2025-07)")
}

func TestRender_OptionalSections(t *testing.T) {
	inputs := carbon.Inputs{
		TenantID:     "acme",
		Period:       "2025-01",
		BandwidthGB:  500,
		UsersCount:   1,
		SystemsCount: 1,
	}
	run := runs.NewEmissionRun(inputs, carbon.DefaultFactors(), time.Now())

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, run, nil))
	out := buf.String()

	assert.NotContains(t, out, "Scope 1+2 Emissions")
	assert.NotContains(t, out, "Scope 1+2 (CCFT)")
	assert.NotContains(t, out, "\nNotes\n")
	assert.NotContains(t, out, "TB-months")
	assert.Contains(t, out, "Total Chain Emissions (Proxy)")
}

func TestRender_TablesAligned(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleRun(), nil))

	var low, high string
	for _, line := range strings.Split(buf.String(), "\n") {
		switch {
		case strings.HasPrefix(line, "Low estimate"):
			low = line
		case strings.HasPrefix(line, "High estimate"):
			high = line
		}
	}
	require.NotEmpty(t, low)
	require.NotEmpty(t, high)

	// The second column starts at the same offset in every band row.
	lowCol := strings.Index(low, FormatKg(sampleRun().Results.TotalChain.Low.Kg))
	highCol := strings.Index(high, FormatKg(sampleRun().Results.TotalChain.High.Kg))
	assert.Equal(t, lowCol, highCol)
}
