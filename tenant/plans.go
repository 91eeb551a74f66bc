package tenant

// Entitlements bundles the quota and feature set a plan tier grants.
type Entitlements struct {
	Quota    Quota
	Features FeatureSet
}

// planTable is the fixed tier table. Enterprise carries the union of the
// lower tiers' features plus custom models, with no usage ceilings.
var planTable = map[Plan]Entitlements{
	PlanStarter: {
		Quota: Quota{
			ContractsPerPeriod: LimitOf(100),
			MaxUsers:           LimitOf(5),
		},
		Features: NewFeatureSet(
			FeatureAnalysisBasic,
			FeatureComplianceScore,
		),
	},
	PlanProfessional: {
		Quota: Quota{
			ContractsPerPeriod: LimitOf(500),
			MaxUsers:           LimitOf(25),
		},
		Features: NewFeatureSet(
			FeatureAnalysisFull,
			FeatureAuditLog,
			FeatureReporting,
		),
	},
	PlanEnterprise: {
		Quota: Quota{
			ContractsPerPeriod: Unlimited(),
			MaxUsers:           Unlimited(),
		},
		Features: NewFeatureSet(
			FeatureAnalysisBasic,
			FeatureComplianceScore,
			FeatureAnalysisFull,
			FeatureAuditLog,
			FeatureReporting,
			FeatureCustomModels,
		),
	},
}

// EntitlementsFor returns the quota and feature set for a plan tier.
// The second return is false for unknown plans.
func EntitlementsFor(p Plan) (Entitlements, bool) {
	e, ok := planTable[p]
	if !ok {
		return Entitlements{}, false
	}

	// Copy the feature set so callers can't mutate the table.
	features := make(FeatureSet, len(e.Features))
	for k := range e.Features {
		features[k] = struct{}{}
	}

	return Entitlements{Quota: e.Quota, Features: features}, true
}

// Apply stamps the plan's quota and features onto the tenant without
// touching the running usage counter.
func (t *Tenant) Apply(p Plan) bool {
	e, ok := EntitlementsFor(p)
	if !ok {
		return false
	}
	t.Plan = p
	t.Quota = e.Quota
	t.Features = e.Features
	return true
}
