package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "Pending"
	OrderStatusCompleted = "Completed"
)

const (
	OrderItemStatusPending   = "Pending"
	OrderItemStatusCompleted = "Completed"
)

const (
	PlanStatusPending   = "pending"
	PlanStatusActive    = "active"
	PlanStatusExpired   = "expired"
	PlanStatusCancelled = "cancelled"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	OwnerRoleOwner      = "Owner"
	OwnerRoleSuperAdmin = "SuperAdmin"
)

const (
	PrincipalOwner    = "owner"
	PrincipalCustomer = "customer"
)

const (
	DiscountTypeFlat    = "flat"
	DiscountTypePercent = "percent"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	TableStatusBooked    = "Booked"
	TableStatusAvailable = "Available"
)

// Counter names for per-business sequences.
const (
	SequenceCustomer = "customer"
)
