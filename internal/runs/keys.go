package runs

import "strings"

// Key namespaces. The repository is the only code that builds store keys.
const (
	tenantsNamespace = "tenants"
	runsNamespace    = "runs"
	factorsNamespace = "factors"
)

// TenantKey returns "tenants/{tenantID}".
func TenantKey(tenantID string) string {
	return tenantsNamespace + "/" + tenantID
}

// RunKey returns "runs/{tenantID}/{period}".
func RunKey(tenantID, period string) string {
	return RunPrefix(tenantID) + period
}

// RunPrefix returns "runs/{tenantID}/", the listing prefix for a tenant's runs.
func RunPrefix(tenantID string) string {
	return runsNamespace + "/" + tenantID + "/"
}

// FactorsKey returns "factors/{tenantID}".
func FactorsKey(tenantID string) string {
	return factorsNamespace + "/" + tenantID
}

// periodFromKey strips the tenant's run prefix. It reports false for keys
// outside the prefix or nested deeper than one segment.
func periodFromKey(tenantID, key string) (string, bool) {
	period, ok := strings.CutPrefix(key, RunPrefix(tenantID))
	if !ok || period == "" || strings.Contains(period, "/") {
		return "", false
	}
	return period, true
}
