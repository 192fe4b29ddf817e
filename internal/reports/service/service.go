// Package service assembles the report payloads with a cache-aside
// strategy: short TTLs plus write-driven invalidation keep the numbers
// close to live without hammering the aggregation queries.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nashcrm_backend/internal/reports/repository"
	"nashcrm_backend/internal/reports/transport"
	"nashcrm_backend/platform/cache"
	"nashcrm_backend/platform/logger"
)

// Report TTLs mirror how fast each view goes stale: the funnel feeds
// live dashboards, the manager view is reviewed occasionally.
const (
	funnelTTL   = 30 * time.Second
	summaryTTL  = time.Minute
	activityTTL = 2 * time.Minute
)

const topDebtorsLimit = 5

// Repository defines the aggregation queries the service needs.
type Repository interface {
	StatusCounts(ctx context.Context, rng repository.Range, managerID *uuid.UUID) (map[string]int, error)
	PaymentTotals(ctx context.Context, rng repository.Range) (repository.PaymentTotals, error)
	DailyStats(ctx context.Context, now time.Time) (repository.DailyStats, error)
	TopDebtors(ctx context.Context, rng repository.Range, limit int) ([]repository.Debtor, error)
	ManagerActivity(ctx context.Context, rng repository.Range) ([]repository.ManagerStats, error)
}

// Cache is the slice of the report cache the service needs.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Service struct {
	repo  Repository
	cache Cache
	log   *logger.Logger
	now   func() time.Time
}

func New(repo Repository, c Cache, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log, now: time.Now}
}

// Funnel returns the pipeline stage counts, optionally filtered by date
// range and manager.
func (s *Service) Funnel(ctx context.Context, rng repository.Range, managerID *uuid.UUID) (transport.FunnelReport, error) {
	key := funnelKey(rng, managerID)

	var cached transport.FunnelReport
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	counts, err := s.repo.StatusCounts(ctx, rng, managerID)
	if err != nil {
		return transport.FunnelReport{}, err
	}

	report := transport.ToFunnelReport(counts)
	s.cacheSet(ctx, key, report, funnelTTL)
	return report, nil
}

// Summary returns lead volumes, payment totals and top debtors.
func (s *Service) Summary(ctx context.Context, rng repository.Range) (transport.SummaryReport, error) {
	key := rangeKey(cache.KeySummaryReport, rng)

	var cached transport.SummaryReport
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	counts, err := s.repo.StatusCounts(ctx, rng, nil)
	if err != nil {
		return transport.SummaryReport{}, err
	}
	totals, err := s.repo.PaymentTotals(ctx, rng)
	if err != nil {
		return transport.SummaryReport{}, err
	}
	daily, err := s.repo.DailyStats(ctx, s.now())
	if err != nil {
		return transport.SummaryReport{}, err
	}
	debtors, err := s.repo.TopDebtors(ctx, rng, topDebtorsLimit)
	if err != nil {
		return transport.SummaryReport{}, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	report := transport.SummaryReport{
		TotalLeads:     total,
		ByStatus:       counts,
		ExpectedCents:  totals.ExpectedCents,
		ReceivedCents:  totals.ReceivedCents,
		DeltaCents:     totals.ExpectedCents - totals.ReceivedCents,
		NewToday:       daily.NewToday,
		CompletedToday: daily.CompletedToday,
		LastSevenDays:  daily.LastSevenDays,
		TopDebtors:     transport.ToDebtorEntries(debtors),
	}
	s.cacheSet(ctx, key, report, summaryTTL)
	return report, nil
}

// ManagerActivity returns the per-manager workload and conversion view.
func (s *Service) ManagerActivity(ctx context.Context, rng repository.Range) (transport.ManagerActivityReport, error) {
	key := rangeKey(cache.KeyManagerActivity, rng)

	var cached transport.ManagerActivityReport
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	stats, err := s.repo.ManagerActivity(ctx, rng)
	if err != nil {
		return transport.ManagerActivityReport{}, err
	}

	report := transport.ToManagerActivityReport(stats)
	s.cacheSet(ctx, key, report, activityTTL)
	return report, nil
}

// cacheGet loads key into dest, treating every cache failure as a miss.
func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.Get(ctx, key, dest) == nil
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.log.Warn("report cache write failed", "key", key, "error", err)
	}
}

func funnelKey(rng repository.Range, managerID *uuid.UUID) string {
	key := rangeKey(cache.KeyFunnelReport, rng)
	if managerID != nil {
		key = fmt.Sprintf("%s:mgr:%s", key, managerID)
	}
	return key
}

func rangeKey(base string, rng repository.Range) string {
	if rng.From == nil && rng.To == nil {
		return base
	}
	from, to := "", ""
	if rng.From != nil {
		from = rng.From.Format("2006-01-02")
	}
	if rng.To != nil {
		to = rng.To.Format("2006-01-02")
	}
	return fmt.Sprintf("%s:%s:%s", base, from, to)
}
