package transport

import (
	"math"

	"github.com/google/uuid"

	"nashcrm_backend/internal/reports/repository"
)

// FunnelReport shows how many leads sit in each pipeline stage and the
// overall conversion into completed.
type FunnelReport struct {
	Funnel         map[string]int `json:"funnel"`
	Total          int            `json:"total"`
	ConversionRate float64        `json:"conversion_rate"`
}

func ToFunnelReport(counts map[string]int) FunnelReport {
	total := 0
	for _, n := range counts {
		total += n
	}
	conversion := 0.0
	if total > 0 {
		conversion = math.Round(float64(counts["completed"])/float64(total)*1000) / 10
	}
	return FunnelReport{Funnel: counts, Total: total, ConversionRate: conversion}
}

type DebtorEntry struct {
	ClientName    string `json:"client"`
	Phone         string `json:"phone"`
	ExpectedCents int64  `json:"expected"`
	ReceivedCents int64  `json:"received"`
	DebtCents     int64  `json:"debt"`
}

// SummaryReport is the management overview: volumes, money flow and the
// biggest outstanding debts.
type SummaryReport struct {
	TotalLeads     int            `json:"total_leads"`
	ByStatus       map[string]int `json:"by_status"`
	ExpectedCents  int64          `json:"expected_sum"`
	ReceivedCents  int64          `json:"received_sum"`
	DeltaCents     int64          `json:"delta"`
	NewToday       int            `json:"new_today"`
	CompletedToday int            `json:"completed_today"`
	LastSevenDays  int            `json:"last_7_days"`
	TopDebtors     []DebtorEntry  `json:"top_debtors"`
}

func ToDebtorEntries(debtors []repository.Debtor) []DebtorEntry {
	out := make([]DebtorEntry, 0, len(debtors))
	for _, d := range debtors {
		out = append(out, DebtorEntry{
			ClientName:    d.ClientName,
			Phone:         d.Phone,
			ExpectedCents: d.ExpectedCents,
			ReceivedCents: d.ReceivedCents,
			DebtCents:     d.DebtCents,
		})
	}
	return out
}

type ManagerActivityEntry struct {
	ManagerID          uuid.UUID `json:"manager_id"`
	ManagerName        string    `json:"manager"`
	TotalLeads         int       `json:"total_leads"`
	Completed          int       `json:"completed"`
	InWork             int       `json:"in_work"`
	Queued             int       `json:"queued"`
	CompletedCents     int64     `json:"total_price"`
	AvgCheckCents      int64     `json:"avg_check"`
	AvgDurationMinutes *int      `json:"avg_duration_minutes,omitempty"`
	ConversionRate     float64   `json:"conversion_rate"`
}

type ManagerActivityReport struct {
	Managers []ManagerActivityEntry `json:"managers"`
}

func ToManagerActivityReport(stats []repository.ManagerStats) ManagerActivityReport {
	entries := make([]ManagerActivityEntry, 0, len(stats))
	for _, s := range stats {
		conversion := 0.0
		if s.TotalLeads > 0 {
			conversion = math.Round(float64(s.Completed)/float64(s.TotalLeads)*1000) / 10
		}
		entries = append(entries, ManagerActivityEntry{
			ManagerID:          s.ManagerID,
			ManagerName:        s.ManagerName,
			TotalLeads:         s.TotalLeads,
			Completed:          s.Completed,
			InWork:             s.InWork,
			Queued:             s.Queued,
			CompletedCents:     s.CompletedCents,
			AvgCheckCents:      s.AvgCheckCents,
			AvgDurationMinutes: s.AvgDurationMinutes,
			ConversionRate:     conversion,
		})
	}
	return ManagerActivityReport{Managers: entries}
}
