package domain

// Role is a manager account role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleManager    Role = "manager"
	RoleWarehouse  Role = "warehouse"
)

// roleStatuses maps each role to the statuses it may set from the UI. This
// is a coarse capability filter layered on top of CanTransition, not a
// transition graph of its own: a target still has to pass the flow rules.
var roleStatuses = map[Role][]Status{
	RoleAdmin:      All(),
	RoleAccountant: All(),
	RoleManager: {
		StatusQueued,
		StatusInWork,
		StatusAwaitingPrepayment,
		StatusDeclined,
	},
	RoleWarehouse: {
		StatusPreparation,
		StatusWarehouseProcessing,
		StatusWarehouseReady,
		StatusOnTheWay,
	},
}

// StatusesForRole returns the statuses the given role is allowed to set.
// Unknown roles may set nothing.
func StatusesForRole(role Role) []Status {
	statuses, ok := roleStatuses[role]
	if !ok {
		return nil
	}
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// RoleCanSet reports whether role is allowed to set target.
func RoleCanSet(role Role, target Status) bool {
	for _, s := range roleStatuses[role] {
		if s == target {
			return true
		}
	}
	return false
}
