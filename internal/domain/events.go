package domain

import (
	"time"
)

// EventType тип события в ленте активности
type EventType string

const (
	EventTypeLockboxAction EventType = "lockbox_action"
	EventTypeEmailSent     EventType = "email_sent"
	EventTypeAdminAction   EventType = "admin_action"
)

// TimelineEvent общее представление события ленты. Не сохраняется.
type TimelineEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Title     string         `json:"title"`
	Subtitle  string         `json:"subtitle,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Badge     string         `json:"badge,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AuditEntry запись журнала аудита. Журнал только дополняется.
type AuditEntry struct {
	ID               string         `json:"id"`
	ActorEmail       string         `json:"actor_email"`
	Action           string         `json:"action"`
	TargetCustomerID string         `json:"target_customer_id,omitempty"`
	Details          map[string]any `json:"details,omitempty"`
	Reason           *string        `json:"reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Audit actions
const (
	AuditActionCustomerSuspended = "customer_suspended"
	AuditActionCustomerReEnabled = "customer_re_enabled"
	AuditActionPromoApplied      = "promo_applied"
	AuditActionPromoCreated      = "promo_code_created"
	AuditActionPromoUpdated      = "promo_code_updated"
	AuditActionPromoDeactivated  = "promo_code_deactivated"
	AuditActionCompMonth         = "comp_month"
	AuditActionCreditApplied     = "credit_applied"
)

// LockboxAction сырое событие действия над локбоксом клиента
type LockboxAction struct {
	ID          string         `json:"id"`
	LockboxID   string         `json:"lockbox_id"`
	LockboxName string         `json:"lockbox_name"`
	Action      string         `json:"action"`
	ActorEmail  string         `json:"actor_email"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// EmailLog сырое событие исходящего письма
type EmailLog struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Template   string    `json:"template"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	SentAt     time.Time `json:"sent_at"`
}
