// Package report renders a stored emission run as a printable plain-text
// report.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rshade/hosting-emissions/internal/carbon"
	"github.com/rshade/hosting-emissions/internal/runs"
)

const dateLayout = "2 January 2006"

// Render writes the report for run. tenant supplies the display name and
// may be nil, in which case the default name derived from the id is used.
//
// Sections, in order: header, executive summary, Scope 1+2 (only when a
// vendor figure is present), total-chain bands, inputs, factors, notes
// (only when present), methodology.
func Render(w io.Writer, run runs.EmissionRun, tenant *runs.Tenant) error {
	bw := bufio.NewWriter(w)

	name := runs.DefaultTenantName(run.TenantID)
	if tenant != nil && tenant.TenantName != "" {
		name = tenant.TenantName
	}

	r := run.Results
	mid := r.TotalChain.Mid
	hasScope12 := r.Scope12.MarketKg > 0 || r.Scope12.LocationKg > 0

	heading(bw, fmt.Sprintf("Emissions Report: %s (%s)", name, run.Period))
	fmt.Fprintf(bw, "Generated on %s\n", run.CreatedAt.Format(dateLayout))

	heading(bw, "Executive Summary")
	fmt.Fprintf(bw, "Total network emissions (mid-range estimate): %s kg CO2e\n", FormatKg(mid.Kg))
	fmt.Fprintf(bw, "Per GB transferred: %s g CO2e\n", FormatUnit(mid.PerGbG))
	fmt.Fprintf(bw, "Per user: %s kg CO2e\n", FormatUnit(mid.PerUserKg))
	fmt.Fprintf(bw, "Per system: %s kg CO2e\n", FormatUnit(mid.PerSystemKg))
	if hasScope12 {
		fmt.Fprintf(bw, "Scope 1+2 (CCFT): %s kg CO2e (market-based)\n", FormatKg(r.Scope12.MarketKg))
	}

	if hasScope12 {
		heading(bw, "Scope 1+2 Emissions")
		fmt.Fprintln(bw, "Based on vendor carbon footprint (CCFT) data provided by the customer.")
		fmt.Fprintln(bw)
		table(bw, []string{"Metric", "Market-based", "Location-based"}, [][]string{
			{"Total emissions", FormatKg(r.Scope12.MarketKg) + " kg CO2e", FormatKg(r.Scope12.LocationKg) + " kg CO2e"},
			{"Per user", FormatUnit(r.Scope12.PerUserMarketKg) + " kg CO2e", FormatUnit(r.Scope12.PerUserLocationKg) + " kg CO2e"},
			{"Per system", FormatKg(r.Scope12.PerSystemMarketKg) + " kg CO2e", FormatKg(r.Scope12.PerSystemLocationKg) + " kg CO2e"},
		})
	}

	heading(bw, "Total Chain Emissions (Proxy)")
	fmt.Fprintln(bw, "Estimated emissions including network infrastructure, a proxy for Scope 1+2+3.")
	fmt.Fprintln(bw)
	table(bw, []string{"Scenario", "Total (kg CO2e)", "Per GB (g CO2e)", "Per User (kg CO2e)", "Per System (kg CO2e)"}, [][]string{
		bandRow("Low estimate", r.TotalChain.Low),
		bandRow("Mid estimate", r.TotalChain.Mid),
		bandRow("High estimate", r.TotalChain.High),
	})

	heading(bw, "Input Data")
	table(bw, []string{"Parameter", "Value", "Unit"}, inputRows(run.Inputs))

	heading(bw, "Emission Factors")
	table(bw, []string{"Factor", "Value", "Unit", "Source"}, factorRows(run.Factors))

	if notes := strings.TrimSpace(run.Inputs.Notes); notes != "" {
		heading(bw, "Notes")
		fmt.Fprintln(bw, notes)
	}

	heading(bw, "Methodology")
	fmt.Fprintln(bw, "Network emissions = Bandwidth x Network energy intensity x PUE x Grid carbon intensity.")
	fmt.Fprintln(bw, "The low, mid and high scenarios reflect uncertainty in the energy required per GB transferred.")
	fmt.Fprintln(bw, "Scope 1+2: direct emissions from energy consumption, from customer-provided CCFT data.")
	fmt.Fprintln(bw, "Total chain (proxy): network infrastructure emissions as a proxy for the full value chain.")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "These are estimates. For regulatory reporting, consult qualified carbon accounting professionals.")

	return bw.Flush()
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
}

func table(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

func bandRow(label string, b carbon.Band) []string {
	return []string{label, FormatKg(b.Kg), FormatUnit(b.PerGbG), FormatUnit(b.PerUserKg), FormatUnit(b.PerSystemKg)}
}

func inputRows(in carbon.Inputs) [][]string {
	rows := [][]string{
		{"Period", in.Period, "YYYY-MM"},
		{"Bandwidth", FormatNumber(in.BandwidthGB, 0), "GB"},
	}
	if in.StorageTBMonths != nil {
		rows = append(rows, []string{"Storage", FormatNumber(*in.StorageTBMonths, 1), "TB-months"})
	}
	if in.BuildMinutes != nil {
		rows = append(rows, []string{"Build minutes", FormatNumber(*in.BuildMinutes, 0), "minutes"})
	}
	if in.BuildVCPUHours != nil {
		rows = append(rows, []string{"Build compute", FormatNumber(*in.BuildVCPUHours, 1), "vCPU-hours"})
	}
	if in.FunctionsGBSeconds != nil {
		rows = append(rows, []string{"Functions", FormatNumber(*in.FunctionsGBSeconds, 0), "GB-seconds"})
	}
	rows = append(rows,
		[]string{"Users", FormatNumber(float64(in.UsersCount), 0), "count"},
		[]string{"Systems", FormatNumber(float64(in.SystemsCount), 0), "count"},
	)
	return rows
}

func factorRows(f carbon.Factors) [][]string {
	return [][]string{
		{"Grid carbon intensity", formatFactor(f.GridIntensityKgPerKWh), "kg CO2e/kWh", "Global average"},
		{"Power Usage Effectiveness (PUE)", formatFactor(f.PUE), "ratio", "Data center average"},
		{"Network energy (low)", formatFactor(f.NetworkWhPerGb.Low), "Wh/GB", "Conservative estimate"},
		{"Network energy (mid)", formatFactor(f.NetworkWhPerGb.Mid), "Wh/GB", "Mid-range estimate"},
		{"Network energy (high)", formatFactor(f.NetworkWhPerGb.High), "Wh/GB", "High-end estimate"},
		{"Storage energy", formatOptionalFactor(f.StorageKWhPerTbMonth), "kWh/TB-month", "Optional coefficient"},
		{"Compute energy", formatOptionalFactor(f.ComputeKWhPerVcpuHour), "kWh/vCPU-hour", "Optional coefficient"},
		{"Functions energy", formatOptionalFactor(f.FunctionsKWhPerGbSecond), "kWh/GB-second", "Optional coefficient"},
	}
}
