// Package domain provides core business rules for the leads bounded context:
// the status flow, payment-conditioned transition guards and payment
// aggregation. Everything here is pure; persistence supplies a
// PaymentSnapshot and acts on the verdict.
package domain

import "fmt"

// Status is a lead lifecycle status.
type Status string

const (
	StatusQueued              Status = "queued"
	StatusInWork              Status = "in_work"
	StatusAwaitingPrepayment  Status = "awaiting_prepayment"
	StatusPreparation         Status = "preparation"
	StatusWarehouseProcessing Status = "warehouse_processing"
	StatusWarehouseReady      Status = "warehouse_ready"
	StatusOnTheWay            Status = "on_the_way"
	StatusCompleted           Status = "completed"
	StatusDeclined            Status = "declined"
)

// statusFlow is the single ordered sequence of active statuses. Movement is
// one step forward or one step backward along this sequence; declined sits
// outside it as a terminal side-state.
var statusFlow = []Status{
	StatusQueued,
	StatusInWork,
	StatusAwaitingPrepayment,
	StatusPreparation,
	StatusWarehouseProcessing,
	StatusWarehouseReady,
	StatusOnTheWay,
	StatusCompleted,
}

var statusNames = map[Status]string{
	StatusQueued:              "Queued",
	StatusInWork:              "In work",
	StatusAwaitingPrepayment:  "Awaiting prepayment",
	StatusPreparation:         "Preparation",
	StatusWarehouseProcessing: "Warehouse processing",
	StatusWarehouseReady:      "Warehouse ready",
	StatusOnTheWay:            "On the way",
	StatusCompleted:           "Completed",
	StatusDeclined:            "Declined",
}

// Rejection reasons for guarded transitions.
const (
	ReasonUnchanged        = "status unchanged"
	ReasonAllowed          = "transition allowed"
	ReasonNotPermitted     = "transition not permitted"
	ReasonPriceMissing     = "price must be set"
	ReasonNoPaymentRecord  = "at least one payment record required"
)

// IsKnown reports whether s is a member of the defined status set.
func IsKnown(s Status) bool {
	if s == StatusDeclined {
		return true
	}
	return flowIndex(s) >= 0
}

// IsTerminal reports whether s admits no outgoing transitions.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusDeclined
}

// Name returns the display name for a status.
func Name(s Status) string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return string(s)
}

// All returns every defined status in flow order, declined last.
func All() []Status {
	out := make([]Status, 0, len(statusFlow)+1)
	out = append(out, statusFlow...)
	return append(out, StatusDeclined)
}

func flowIndex(s Status) int {
	for i, item := range statusFlow {
		if item == s {
			return i
		}
	}
	return -1
}

// CanTransition decides whether a lead may move from current to target given
// its payment snapshot, and reports a human-readable reason when it may not.
// The identity transition is always a permitted no-op.
func CanTransition(current, target Status, snap PaymentSnapshot) (bool, string) {
	if current == target {
		return true, ReasonUnchanged
	}

	if !IsKnown(current) || !IsKnown(target) {
		return false, ReasonNotPermitted
	}

	// Declining is possible from any status except the two terminal ones.
	if target == StatusDeclined {
		if IsTerminal(current) {
			return false, ReasonNotPermitted
		}
		return true, ReasonAllowed
	}

	if IsTerminal(current) {
		return false, ReasonNotPermitted
	}

	currentIdx := flowIndex(current)
	targetIdx := flowIndex(target)
	if currentIdx < 0 || targetIdx < 0 {
		return false, ReasonNotPermitted
	}

	switch targetIdx - currentIdx {
	case 1:
		return checkForwardGuard(current, target, snap)
	case -1:
		// One step back is always permitted. Wider jumps backward never
		// are, which keeps on_the_way from skipping to warehouse_processing.
		return true, ReasonAllowed
	default:
		return false, ReasonNotPermitted
	}
}

// checkForwardGuard applies the two payment-conditioned forward guards.
func checkForwardGuard(current, target Status, snap PaymentSnapshot) (bool, string) {
	switch {
	case current == StatusPreparation && target == StatusWarehouseProcessing:
		if snap.PriceCents <= 0 {
			return false, ReasonPriceMissing
		}
		if !snap.HasPaymentRecord {
			return false, ReasonNoPaymentRecord
		}
		return true, ReasonAllowed

	case current == StatusOnTheWay && target == StatusCompleted:
		if snap.PriceCents <= 0 {
			return false, ReasonPriceMissing
		}
		if !IsFullyPaid(snap) {
			info := BuildPaymentInfo(snap)
			return false, fmt.Sprintf(
				"insufficient payment: %s short of full price %s",
				FormatMoney(info.ShortageCents), FormatMoney(info.PriceCents),
			)
		}
		return true, ReasonAllowed

	default:
		return true, ReasonAllowed
	}
}

// AllowedTransitions returns every status reachable from current in one
// permitted step, given the payment snapshot.
func AllowedTransitions(current Status, snap PaymentSnapshot) []Status {
	var allowed []Status
	for _, target := range All() {
		if target == current {
			continue
		}
		if ok, _ := CanTransition(current, target, snap); ok {
			allowed = append(allowed, target)
		}
	}
	return allowed
}

// FormatMoney renders an amount of cents as a decimal money string.
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
