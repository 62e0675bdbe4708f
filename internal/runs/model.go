// Package runs maps emission runs, tenants and per-tenant custom factors
// onto store keys.
package runs

import (
	"strings"
	"time"

	"github.com/rshade/hosting-emissions/internal/carbon"
)

// SchemaVersion is stamped on every saved run.
const SchemaVersion = 1

// EmissionRun is the durable record of one tenant-period calculation.
// A later save for the same tenant and period overwrites the earlier one.
type EmissionRun struct {
	TenantID  string                    `json:"tenant_id"`
	Period    string                    `json:"period"`
	Inputs    carbon.Inputs             `json:"inputs"`
	Factors   carbon.Factors            `json:"factors"`
	Results   carbon.CalculationResults `json:"results"`
	CreatedAt time.Time                 `json:"created_at"`

	// SavedAt and Version are set by Repository.SaveRun.
	SavedAt time.Time `json:"saved_at"`
	Version int       `json:"version"`
}

// NewEmissionRun calculates inputs under factors and wraps the result.
func NewEmissionRun(inputs carbon.Inputs, factors carbon.Factors, createdAt time.Time) EmissionRun {
	return EmissionRun{
		TenantID:  inputs.TenantID,
		Period:    inputs.Period,
		Inputs:    inputs,
		Factors:   factors,
		Results:   carbon.Calculate(inputs, factors),
		CreatedAt: createdAt,
	}
}

// Tenant is advisory metadata about a tenant. It is created on the first
// run save and never deleted.
type Tenant struct {
	TenantID     string    `json:"tenant_id"`
	TenantName   string    `json:"tenant_name"`
	ContactEmail string    `json:"contact_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultTenantName is the display name given to implicitly created tenants.
func DefaultTenantName(tenantID string) string {
	return strings.ToUpper(tenantID)
}

// CustomFactors is a tenant's saved factor overrides. They sit between a
// request's own overrides and the built-in defaults.
type CustomFactors struct {
	TenantID  string                 `json:"tenant_id"`
	Factors   carbon.FactorOverrides `json:"factors"`
	UpdatedAt time.Time              `json:"updated_at"`
}
