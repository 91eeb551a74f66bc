// Package memory provides an in-memory Store for tests and local
// development. All state is tenant-keyed and guarded by one mutex; the
// usage counter check-and-increment runs under the same critical section
// so concurrent reservations never overcommit.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/tribunal"
	"github.com/xraph/tribunal/audit"
	"github.com/xraph/tribunal/contract"
	"github.com/xraph/tribunal/decision"
	"github.com/xraph/tribunal/id"
	"github.com/xraph/tribunal/tenant"
)

type Store struct {
	mu sync.RWMutex

	// Tenant storage, keyed by org ID
	tenants map[string]*tenant.Tenant

	// Decision storage, keyed by tenant then decision ID
	decisions map[string]map[string]*decision.Decision

	// Audit chains, one ascending slice per tenant
	chains map[string][]audit.Entry

	// Analysis storage, keyed by tenant then analysis ID
	analyses map[string]map[string]*contract.Analysis
}

func New() *Store {
	return &Store{
		tenants:   make(map[string]*tenant.Tenant),
		decisions: make(map[string]map[string]*decision.Decision),
		chains:    make(map[string][]audit.Entry),
		analyses:  make(map[string]map[string]*contract.Analysis),
	}
}

// Tenant Store implementation
func (s *Store) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[t.OrgID]; exists {
		return tribunal.ErrDuplicateTenant
	}
	s.tenants[t.OrgID] = cloneTenant(t)
	return nil
}

func (s *Store) GetTenant(_ context.Context, orgID string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tenants[orgID]; ok {
		return cloneTenant(t), nil
	}
	return nil, tribunal.ErrTenantNotFound
}

func (s *Store) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.tenants[t.OrgID]
	if !exists {
		return tribunal.ErrTenantNotFound
	}
	// Usage belongs to the reservation path; plan/feature/status updates
	// must not clobber a counter that moved concurrently.
	usage := stored.Usage
	clone := cloneTenant(t)
	clone.Usage = usage
	s.tenants[t.OrgID] = clone
	return nil
}

func (s *Store) ListTenants(_ context.Context) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		result = append(result, cloneTenant(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrgID < result[j].OrgID })
	return result, nil
}

func (s *Store) ReserveUsage(_ context.Context, orgID string, limit tenant.Limit) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tenants[orgID]
	if !exists {
		return 0, tribunal.ErrTenantNotFound
	}
	if !limit.Allows(t.Usage) {
		return t.Usage, tribunal.ErrQuotaExceeded
	}
	t.Usage++
	return t.Usage, nil
}

func (s *Store) ReleaseUsage(_ context.Context, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tenants[orgID]
	if !exists {
		return tribunal.ErrTenantNotFound
	}
	if t.Usage > 0 {
		t.Usage--
	}
	return nil
}

func (s *Store) ResetUsage(_ context.Context, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tenants[orgID]
	if !exists {
		return tribunal.ErrTenantNotFound
	}
	t.Usage = 0
	return nil
}

// Decision Store implementation
func (s *Store) CreateDecision(_ context.Context, d *decision.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.decisions[d.TenantID]
	if !ok {
		byID = make(map[string]*decision.Decision)
		s.decisions[d.TenantID] = byID
	}
	byID[d.ID.String()] = cloneDecision(d)
	return nil
}

func (s *Store) GetDecision(_ context.Context, tenantID string, decisionID id.DecisionID) (*decision.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.decisions[tenantID][decisionID.String()]; ok {
		return cloneDecision(d), nil
	}
	return nil, tribunal.ErrDecisionNotFound
}

func (s *Store) UpdateDecision(_ context.Context, d *decision.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.decisions[d.TenantID][d.ID.String()]; !ok {
		return tribunal.ErrDecisionNotFound
	}
	s.decisions[d.TenantID][d.ID.String()] = cloneDecision(d)
	return nil
}

func (s *Store) ListDecisions(_ context.Context, tenantID string, opts decision.ListOpts) ([]*decision.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*decision.Decision, 0)
	for _, d := range s.decisions[tenantID] {
		if opts.State == "" || d.State == opts.State {
			result = append(result, cloneDecision(d))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Audit Store implementation
func (s *Store) AppendAudit(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chains[e.TenantID] = append(s.chains[e.TenantID], *e)
	return nil
}

func (s *Store) ReadAudit(_ context.Context, tenantID string, fromSeq, toSeq uint64) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]audit.Entry, 0)
	for _, e := range s.chains[tenantID] {
		if e.Sequence < fromSeq {
			continue
		}
		if toSeq != 0 && e.Sequence > toSeq {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *Store) LastAudit(_ context.Context, tenantID string) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[tenantID]
	if len(chain) == 0 {
		return nil, nil
	}
	last := chain[len(chain)-1]
	return &last, nil
}

func (s *Store) CountAudit(_ context.Context, tenantID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.chains[tenantID])), nil
}

// Analysis Store implementation
func (s *Store) CreateAnalysis(_ context.Context, a *contract.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.analyses[a.TenantID]
	if !ok {
		byID = make(map[string]*contract.Analysis)
		s.analyses[a.TenantID] = byID
	}
	byID[a.ID.String()] = cloneAnalysis(a)
	return nil
}

func (s *Store) GetAnalysis(_ context.Context, tenantID string, analysisID id.AnalysisID) (*contract.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.analyses[tenantID][analysisID.String()]; ok {
		return cloneAnalysis(a), nil
	}
	return nil, tribunal.ErrAnalysisNotFound
}

func (s *Store) SetAnalysisAuditHash(_ context.Context, tenantID string, analysisID id.AnalysisID, auditHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyses[tenantID][analysisID.String()]
	if !ok {
		return tribunal.ErrAnalysisNotFound
	}
	a.AuditHash = auditHash
	return nil
}

func (s *Store) DeleteAnalysis(_ context.Context, tenantID string, analysisID id.AnalysisID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[tenantID][analysisID.String()]; !ok {
		return tribunal.ErrAnalysisNotFound
	}
	delete(s.analyses[tenantID], analysisID.String())
	return nil
}

// Clone helpers. Returned and stored records must not share nested state
// with the caller's copy; a mutation on one side must never reach the other.

func cloneTenant(t *tenant.Tenant) *tenant.Tenant {
	clone := *t
	if t.Features != nil {
		clone.Features = make(tenant.FeatureSet, len(t.Features))
		for k, v := range t.Features {
			clone.Features[k] = v
		}
	}
	return &clone
}

func cloneDecision(d *decision.Decision) *decision.Decision {
	clone := *d
	if d.Results != nil {
		clone.Results = make([]decision.ModuleResult, len(d.Results))
		copy(clone.Results, d.Results)
		for i := range clone.Results {
			clone.Results[i].Payload = cloneMap(clone.Results[i].Payload)
		}
	}
	if d.ReviewedAt != nil {
		at := *d.ReviewedAt
		clone.ReviewedAt = &at
	}
	return &clone
}

func cloneAnalysis(a *contract.Analysis) *contract.Analysis {
	clone := *a
	clone.KeyTerms = append([]string(nil), a.KeyTerms...)
	clone.Risks = append([]contract.Risk(nil), a.Risks...)
	clone.LegalFrameworks = append([]string(nil), a.LegalFrameworks...)
	return &clone
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
