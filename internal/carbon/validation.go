package carbon

import (
	"regexp"
	"strings"
)

// WarningPrefix marks a soft issue: it is reported with the hard errors but
// callers should not reject a request because of it.
const WarningPrefix = "Warning: "

// Validation messages. Callers and tests match on these exact strings.
const (
	MsgTenantRequired      = "Tenant ID is required"
	MsgTenantSeparator     = "Tenant ID must not contain '/'"
	MsgPeriodRequired      = "Period is required"
	MsgPeriodFormat        = "Period must be in YYYY-MM format"
	MsgUsageSignalRequired = "Either bandwidth or CCFT Scope 1+2 values are required"
	MsgBandwidthNegative   = "Bandwidth must be non-negative"
	MsgStorageNegative     = "Storage must be non-negative"
	MsgBuildNegative       = "Build minutes must be non-negative"
	MsgFunctionsNegative   = "Functions GB-seconds must be non-negative"
	MsgUsersNotPositive    = "Users count must be positive"
	MsgSystemsNotPositive  = "Systems count must be positive"
	MsgBandwidthExtreme    = WarningPrefix + "Bandwidth seems extremely high (>10PB)"
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidateInputs checks a usage draft and returns every violated rule.
//
// Rules are evaluated independently, so an empty draft reports the tenant,
// period and usage-signal rules at once. An absent field counts as not
// provided rather than invalid. The bandwidth plausibility check is
// returned as a WarningPrefix entry. An empty slice means the draft is valid.
func ValidateInputs(p PartialInputs) []string {
	var issues []string

	tenant := strings.TrimSpace(stringOf(p.TenantID))
	if tenant == "" {
		issues = append(issues, MsgTenantRequired)
	} else if strings.Contains(tenant, "/") {
		issues = append(issues, MsgTenantSeparator)
	}

	period := strings.TrimSpace(stringOf(p.Period))
	if period == "" {
		issues = append(issues, MsgPeriodRequired)
	} else if !periodPattern.MatchString(period) {
		issues = append(issues, MsgPeriodFormat)
	}

	if !positive(p.BandwidthGB) && !positive(p.CCFTScope12MarketKg) && !positive(p.CCFTScope12LocationKg) {
		issues = append(issues, MsgUsageSignalRequired)
	}

	nonNegative := []struct {
		value *float64
		msg   string
	}{
		{p.BandwidthGB, MsgBandwidthNegative},
		{p.StorageTBMonths, MsgStorageNegative},
		{p.BuildMinutes, MsgBuildNegative},
		{p.FunctionsGBSeconds, MsgFunctionsNegative},
	}
	for _, rule := range nonNegative {
		if rule.value != nil && *rule.value < 0 {
			issues = append(issues, rule.msg)
		}
	}

	if p.UsersCount != nil && *p.UsersCount <= 0 {
		issues = append(issues, MsgUsersNotPositive)
	}
	if p.SystemsCount != nil && *p.SystemsCount <= 0 {
		issues = append(issues, MsgSystemsNotPositive)
	}

	if p.BandwidthGB != nil && *p.BandwidthGB > MaxPlausibleBandwidthGB {
		issues = append(issues, MsgBandwidthExtreme)
	}

	return issues
}

// SplitIssues separates hard errors from WarningPrefix entries.
func SplitIssues(issues []string) (errs, warnings []string) {
	for _, issue := range issues {
		if IsWarning(issue) {
			warnings = append(warnings, issue)
			continue
		}
		errs = append(errs, issue)
	}
	return errs, warnings
}

// IsWarning reports whether issue is a soft warning.
func IsWarning(issue string) bool {
	return strings.HasPrefix(issue, WarningPrefix)
}

// Inputs converts a validated draft into Inputs, applying defaults:
// missing bandwidth is 0, missing users and systems counts are 1.
// Identifiers are trimmed.
func (p PartialInputs) Inputs() Inputs {
	in := Inputs{
		TenantID:              strings.TrimSpace(stringOf(p.TenantID)),
		Period:                strings.TrimSpace(stringOf(p.Period)),
		BandwidthGB:           valueOf(p.BandwidthGB),
		StorageTBMonths:       copyFloat(p.StorageTBMonths),
		BuildMinutes:          copyFloat(p.BuildMinutes),
		BuildVCPUHours:        copyFloat(p.BuildVCPUHours),
		FunctionsGBSeconds:    copyFloat(p.FunctionsGBSeconds),
		UsersCount:            1,
		SystemsCount:          1,
		CCFTScope12MarketKg:   copyFloat(p.CCFTScope12MarketKg),
		CCFTScope12LocationKg: copyFloat(p.CCFTScope12LocationKg),
		Notes:                 stringOf(p.Notes),
	}
	if p.UsersCount != nil {
		in.UsersCount = *p.UsersCount
	}
	if p.SystemsCount != nil {
		in.SystemsCount = *p.SystemsCount
	}
	return in
}

// Partial converts Inputs back to a draft, for re-validating stored runs.
func (in Inputs) Partial() PartialInputs {
	users, systems := in.UsersCount, in.SystemsCount
	p := PartialInputs{
		TenantID:              &in.TenantID,
		Period:                &in.Period,
		BandwidthGB:           Float(in.BandwidthGB),
		StorageTBMonths:       copyFloat(in.StorageTBMonths),
		BuildMinutes:          copyFloat(in.BuildMinutes),
		BuildVCPUHours:        copyFloat(in.BuildVCPUHours),
		FunctionsGBSeconds:    copyFloat(in.FunctionsGBSeconds),
		UsersCount:            &users,
		SystemsCount:          &systems,
		CCFTScope12MarketKg:   copyFloat(in.CCFTScope12MarketKg),
		CCFTScope12LocationKg: copyFloat(in.CCFTScope12LocationKg),
	}
	if in.Notes != "" {
		p.Notes = &in.Notes
	}
	return p
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}

func stringOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
