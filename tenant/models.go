// Package tenant defines the organization account model: plan tiers,
// quotas, feature entitlements, and the running usage counter.
package tenant

import (
	"github.com/xraph/tribunal/types"
)

// Status of a tenant account. Tenants are never deleted, only deactivated.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Plan is a named subscription tier determining quota and feature set.
type Plan string

const (
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// Valid reports whether the plan names a known tier.
func (p Plan) Valid() bool {
	switch p {
	case PlanStarter, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

// Feature keys gated by plan tier.
const (
	FeatureAnalysisBasic   = "analysis_basic"
	FeatureComplianceScore = "compliance_score"
	FeatureAnalysisFull    = "analysis_full"
	FeatureAuditLog        = "audit_log"
	FeatureReporting       = "reporting"
	FeatureCustomModels    = "custom_models"
)

// Limit is an optionally-unbounded quota limit. Unlimited plans carry no
// numeric ceiling, so no sentinel value ever participates in arithmetic.
type Limit struct {
	N         int64 `json:"n"`
	Unbounded bool  `json:"unbounded"`
}

// LimitOf returns a finite limit of n.
func LimitOf(n int64) Limit { return Limit{N: n} }

// Unlimited returns a limit with no ceiling.
func Unlimited() Limit { return Limit{Unbounded: true} }

// Allows reports whether one more unit fits under the limit given current use.
func (l Limit) Allows(used int64) bool {
	if l.Unbounded {
		return true
	}
	return used < l.N
}

// Remaining returns the headroom under the limit, and false when unbounded.
func (l Limit) Remaining(used int64) (int64, bool) {
	if l.Unbounded {
		return 0, false
	}
	if used >= l.N {
		return 0, true
	}
	return l.N - used, true
}

// Quota bounds a tenant's usage for the current billing period.
type Quota struct {
	ContractsPerPeriod Limit `json:"contracts_per_period"`
	MaxUsers           Limit `json:"max_users"`
}

// FeatureSet is the set of capability tags a plan entitles.
type FeatureSet map[string]struct{}

// NewFeatureSet builds a set from the given keys.
func NewFeatureSet(keys ...string) FeatureSet {
	fs := make(FeatureSet, len(keys))
	for _, k := range keys {
		fs[k] = struct{}{}
	}
	return fs
}

// Has reports whether the set contains the feature key.
func (fs FeatureSet) Has(key string) bool {
	_, ok := fs[key]
	return ok
}

// HasAny reports whether the set contains at least one of the keys.
func (fs FeatureSet) HasAny(keys ...string) bool {
	for _, k := range keys {
		if fs.Has(k) {
			return true
		}
	}
	return false
}

// Keys returns the feature keys in unspecified order.
func (fs FeatureSet) Keys() []string {
	keys := make([]string, 0, len(fs))
	for k := range fs {
		keys = append(keys, k)
	}
	return keys
}

// Tenant is an isolated organizational account. OrgID is the external unique
// key supplied by the authentication boundary; all pipeline and ledger state
// is partitioned by it.
type Tenant struct {
	types.Entity
	OrgID    string     `json:"org_id"`
	OrgName  string     `json:"org_name"`
	Plan     Plan       `json:"plan"`
	Quota    Quota      `json:"quota"`
	Features FeatureSet `json:"features"`
	Usage    int64      `json:"usage_counter"`
	Status   Status     `json:"status"`
}

// Active reports whether the tenant may enter the pipeline.
func (t *Tenant) Active() bool {
	return t.Status == StatusActive
}

// Entitled reports whether the tenant's plan carries any of the feature keys.
func (t *Tenant) Entitled(features ...string) bool {
	return t.Features.HasAny(features...)
}

// UsageStats is the read-only usage snapshot exposed to reporting surfaces.
type UsageStats struct {
	OrgID     string `json:"org_id"`
	Plan      Plan   `json:"plan"`
	Used      int64  `json:"used"`
	Limit     Limit  `json:"limit"`
	Remaining int64  `json:"remaining"`
	Unbounded bool   `json:"unbounded"`
}
