package domain

// CustomerStatus отображаемый статус клиента. Всегда вычисляется, никогда не хранится.
type CustomerStatus string

const (
	StatusActiveTrial         CustomerStatus = "active_trial"
	StatusActivePaid          CustomerStatus = "active_paid"
	StatusPastDue             CustomerStatus = "past_due"
	StatusPendingCancellation CustomerStatus = "pending_cancellation"
	StatusCancelled           CustomerStatus = "cancelled"
)

// AllStatuses перечисляет все возможные значения CustomerStatus
var AllStatuses = []CustomerStatus{
	StatusActiveTrial,
	StatusActivePaid,
	StatusPastDue,
	StatusPendingCancellation,
	StatusCancelled,
}

// ResolveStatus выводит статус клиента из тарифа и снимка биллинга.
// Правила проверяются по порядку; единственный источник истины для алертов,
// дашбордов и проверок права на промокоды.
func ResolveStatus(plan PlanTier, snapshot *BillingSnapshot) CustomerStatus {
	if plan == PlanTierFreeTrial {
		return StatusActiveTrial
	}
	if snapshot == nil || snapshot.SubscriptionStatus == SubscriptionStatusInactive {
		return StatusCancelled
	}

	switch snapshot.SubscriptionStatus {
	case SubscriptionStatusPastDue:
		return StatusPastDue
	case SubscriptionStatusCanceled:
		return StatusCancelled
	case SubscriptionStatusActive:
		if snapshot.CancelAtPeriodEnd {
			return StatusPendingCancellation
		}
		return StatusActivePaid
	}

	return StatusCancelled
}
