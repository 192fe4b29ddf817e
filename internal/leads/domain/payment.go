package domain

import "math"

// PaymentSnapshot is the aggregated payment state of a single lead as read
// from storage. Amounts are integer cents.
type PaymentSnapshot struct {
	PriceCents       int64
	ExpectedCents    int64
	ReceivedCents    int64
	HasPaymentRecord bool
}

// PaymentInfo is the derived payment summary exposed to callers. It is a
// total function of the snapshot and never fails, whatever the input.
type PaymentInfo struct {
	PriceCents        int64   `json:"price"`
	ExpectedCents     int64   `json:"expected_amount"`
	ReceivedCents     int64   `json:"received_amount"`
	ShortageCents     int64   `json:"shortage"`
	OverpaidCents     int64   `json:"overpaid"`
	PaymentPercentage float64 `json:"payment_percentage"`
}

// BuildPaymentInfo derives the payment summary from a snapshot.
//
// Shortage and overpayment are clamped at zero so exactly one of them is
// ever positive. A lead without a price counts as 100% paid: there is
// nothing outstanding to collect.
func BuildPaymentInfo(snap PaymentSnapshot) PaymentInfo {
	info := PaymentInfo{
		PriceCents:    snap.PriceCents,
		ExpectedCents: snap.ExpectedCents,
		ReceivedCents: snap.ReceivedCents,
	}

	if shortage := snap.PriceCents - snap.ReceivedCents; shortage > 0 {
		info.ShortageCents = shortage
	}
	if snap.PriceCents > 0 {
		if overpaid := snap.ReceivedCents - snap.PriceCents; overpaid > 0 {
			info.OverpaidCents = overpaid
		}
		ratio := float64(snap.ReceivedCents) / float64(snap.PriceCents)
		info.PaymentPercentage = math.Round(ratio*10000) / 100
	} else {
		info.PaymentPercentage = 100.0
	}

	return info
}

// IsFullyPaid reports whether the lead's received payments cover its price.
// A lead with no positive price is never considered fully paid.
func IsFullyPaid(snap PaymentSnapshot) bool {
	return snap.PriceCents > 0 && snap.ReceivedCents >= snap.PriceCents
}
