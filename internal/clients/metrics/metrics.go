// Package metrics derives client classification from purchase history:
// temperature, active-base segment and RFM scoring. All functions are pure
// so the rules can be tested without a database.
package metrics

import (
	"fmt"
	"time"
)

// Temperature classifies how ready a contact is to buy.
const (
	TemperatureCold     = "cold"
	TemperatureWarm     = "warm"
	TemperatureHot      = "hot"
	TemperatureCustomer = "customer"
	TemperatureLoyal    = "loyal"
	TemperatureSleeping = "sleeping"
)

// Active client base segments by lifetime spend.
const (
	SegmentVIP      = "vip"
	SegmentPremium  = "premium"
	SegmentStandard = "standard"
	SegmentBasic    = "basic"
	SegmentNew      = "new"
	SegmentInactive = "inactive"
)

// Spend thresholds in kopecks.
const (
	vipThresholdCents      = 50_000_00
	premiumThresholdCents  = 20_000_00
	standardThresholdCents = 5_000_00
	monetaryMidCents       = 10_000_00
)

// recencyNever marks a client who has never purchased.
const recencyNever = 999

// Inputs is the purchase history snapshot the classification runs on.
type Inputs struct {
	TotalOrders      int
	TotalSpentCents  int64
	LeadCount        int
	LastPurchaseDate *time.Time
	Now              time.Time
}

// Temperature derives the contact temperature. Contacts without purchases
// heat up with every lead; buyers cool down into sleeping after six months
// of silence.
func Temperature(in Inputs) string {
	if in.TotalOrders == 0 {
		switch {
		case in.LeadCount <= 1:
			return TemperatureCold
		case in.LeadCount == 2:
			return TemperatureWarm
		default:
			return TemperatureHot
		}
	}

	if in.TotalOrders >= 3 {
		return TemperatureLoyal
	}
	if in.LastPurchaseDate != nil && in.Now.Sub(*in.LastPurchaseDate) > 180*24*time.Hour {
		return TemperatureSleeping
	}
	return TemperatureCustomer
}

// AKBSegment derives the active-base segment from lifetime spend.
func AKBSegment(totalOrders int, totalSpentCents int64) string {
	if totalOrders == 0 {
		return SegmentNew
	}
	switch {
	case totalSpentCents >= vipThresholdCents:
		return SegmentVIP
	case totalSpentCents >= premiumThresholdCents:
		return SegmentPremium
	case totalSpentCents >= standardThresholdCents:
		return SegmentStandard
	case totalSpentCents > 0:
		return SegmentBasic
	default:
		return SegmentInactive
	}
}

// RFM holds the recency/frequency/monetary metrics and the combined score.
type RFM struct {
	RecencyDays   int
	Frequency     int
	MonetaryCents int64
	Score         string
}

// ComputeRFM scores each dimension 1..5 and concatenates them, e.g. "545".
func ComputeRFM(in Inputs) RFM {
	recency := recencyNever
	if in.LastPurchaseDate != nil {
		recency = int(in.Now.Sub(*in.LastPurchaseDate).Hours() / 24)
	}

	out := RFM{
		RecencyDays:   recency,
		Frequency:     in.TotalOrders,
		MonetaryCents: in.TotalSpentCents,
	}
	out.Score = fmt.Sprintf("%d%d%d",
		recencyScore(recency),
		frequencyScore(in.TotalOrders),
		monetaryScore(in.TotalSpentCents),
	)
	return out
}

func recencyScore(days int) int {
	switch {
	case days <= 30:
		return 5
	case days <= 90:
		return 4
	case days <= 180:
		return 3
	case days <= 365:
		return 2
	default:
		return 1
	}
}

func frequencyScore(orders int) int {
	switch {
	case orders >= 10:
		return 5
	case orders >= 5:
		return 4
	case orders >= 3:
		return 3
	case orders >= 2:
		return 2
	default:
		return 1
	}
}

func monetaryScore(cents int64) int {
	switch {
	case cents >= vipThresholdCents:
		return 5
	case cents >= premiumThresholdCents:
		return 4
	case cents >= monetaryMidCents:
		return 3
	case cents >= standardThresholdCents:
		return 2
	default:
		return 1
	}
}
