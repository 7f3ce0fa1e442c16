package enums

import "fmt"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated               OrderStatus = "created"
	OrderStatusPendingPayment        OrderStatus = "pending_payment"
	OrderStatusPaid                  OrderStatus = "paid"
	OrderStatusPaymentFailed         OrderStatus = "payment_failed"
	OrderStatusSubmittedToProduction OrderStatus = "submitted_to_production"
	OrderStatusInProduction          OrderStatus = "in_production"
	OrderStatusCompleted             OrderStatus = "completed"
	OrderStatusCancelled             OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusPendingPayment,
	OrderStatusPaid,
	OrderStatusPaymentFailed,
	OrderStatusSubmittedToProduction,
	OrderStatusInProduction,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// IsValid reports whether the value matches a known order status.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is expected.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// IsCheckoutEligible reports whether checkout may start from this status.
// PendingPayment is included so an interrupted checkout can be re-entered.
func (s OrderStatus) IsCheckoutEligible() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaymentFailed, OrderStatusPendingPayment:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// ProductionStatus is the subset of order statuses reported by the
// production system.
type ProductionStatus string

const (
	ProductionStatusInProduction ProductionStatus = "in_production"
	ProductionStatusCompleted    ProductionStatus = "completed"
)

var validProductionStatuses = []ProductionStatus{
	ProductionStatusInProduction,
	ProductionStatusCompleted,
}

func (s ProductionStatus) IsValid() bool {
	for _, candidate := range validProductionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseProductionStatus(value string) (ProductionStatus, error) {
	for _, candidate := range validProductionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid production status %q", value)
}
