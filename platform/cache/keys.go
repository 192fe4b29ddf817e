package cache

import "context"

// Report cache keys. Structured keys plus an explicit invalidation registry
// are preferred over wildcard deletion, which the underlying store may not
// support efficiently; the pattern delete remains as a safety net for
// parameterised report keys.
const (
	KeyFunnelReport    = "reports:funnel"
	KeySummaryReport   = "reports:summary"
	KeyManagerActivity = "reports:manager_activity"

	patternReports = "reports:*"
)

// Entity names entity types whose writes invalidate derived report data.
type Entity string

const (
	EntityLead    Entity = "lead"
	EntityPayment Entity = "payment"
	EntityClient  Entity = "client"
)

// invalidationRegistry maps an entity type to the exact derived keys its
// writes affect.
var invalidationRegistry = map[Entity][]string{
	EntityLead:    {KeyFunnelReport, KeySummaryReport, KeyManagerActivity},
	EntityPayment: {KeyFunnelReport, KeySummaryReport},
	EntityClient:  {KeySummaryReport},
}

// InvalidateEntity removes the derived keys registered for the entity type,
// then sweeps any parameterised report keys by pattern. Invalidation is
// aggressive by policy: correctness over hit rate.
func (s *Store) InvalidateEntity(ctx context.Context, entity Entity) {
	if keys, ok := invalidationRegistry[entity]; ok {
		s.Delete(ctx, keys...)
	}
	s.DeletePattern(ctx, patternReports)
}
