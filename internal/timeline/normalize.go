package timeline

import (
	"strings"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lockboxActionTitles = map[string]string{
	"created":          "Lockbox created",
	"renamed":          "Lockbox renamed",
	"deleted":          "Lockbox deleted",
	"shared":           "Lockbox shared",
	"unshared":         "Sharing revoked",
	"item_added":       "Item added",
	"item_updated":     "Item updated",
	"item_removed":     "Item removed",
	"file_uploaded":    "File uploaded",
	"file_downloaded":  "File downloaded",
	"member_invited":   "Member invited",
	"member_removed":   "Member removed",
	"access_requested": "Access requested",
}

var emailTemplateTitles = map[string]string{
	"welcome":               "Welcome email",
	"trial_ending":          "Trial ending reminder",
	"trial_ended":           "Trial ended notice",
	"trial_extended":        "Trial extension confirmation",
	"payment_failed":        "Payment failed notice",
	"payment_succeeded":     "Payment receipt",
	"subscription_canceled": "Cancellation confirmation",
	"password_reset":        "Password reset",
	"account_suspended":     "Account suspended notice",
	"account_reenabled":     "Account restored notice",
}

var adminActionTitles = map[string]string{
	domain.AuditActionCustomerSuspended: "Customer suspended",
	domain.AuditActionCustomerReEnabled: "Customer re-enabled",
	domain.AuditActionPromoApplied:      "Promo code applied",
	domain.AuditActionPromoCreated:      "Promo code created",
	domain.AuditActionPromoUpdated:      "Promo code updated",
	domain.AuditActionPromoDeactivated:  "Promo code deactivated",
	domain.AuditActionCompMonth:         "Complimentary month",
	domain.AuditActionCreditApplied:     "Account credit applied",
}

var titleCaser = cases.Title(language.English)

// humanize превращает сырой код вида "item_added" в "Item Added".
// Если код пустой, возвращает fallback.
func humanize(code, fallback string) string {
	words := strings.FieldsFunc(code, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})
	if len(words) == 0 {
		return fallback
	}
	return titleCaser.String(strings.Join(words, " "))
}

func title(table map[string]string, code, fallback string) string {
	if t, ok := table[code]; ok {
		return t
	}
	return humanize(code, fallback)
}

// NormalizeLockboxAction переводит действие над локбоксом в событие ленты
func NormalizeLockboxAction(a domain.LockboxAction) domain.TimelineEvent {
	metadata := map[string]any{
		"lockbox_id": a.LockboxID,
		"action":     a.Action,
	}
	if len(a.Details) > 0 {
		metadata["details"] = a.Details
	}

	return domain.TimelineEvent{
		ID:        "lockbox:" + a.ID,
		Type:      domain.EventTypeLockboxAction,
		Timestamp: a.CreatedAt,
		Title:     title(lockboxActionTitles, a.Action, "Lockbox activity"),
		Subtitle:  a.LockboxName,
		Actor:     a.ActorEmail,
		Badge:     "lockbox",
		Metadata:  metadata,
	}
}

// NormalizeEmail переводит запись журнала писем в событие ленты
func NormalizeEmail(e domain.EmailLog) domain.TimelineEvent {
	badge := e.Status
	if badge == "" {
		badge = "sent"
	}

	return domain.TimelineEvent{
		ID:        "email:" + e.ID,
		Type:      domain.EventTypeEmailSent,
		Timestamp: e.SentAt,
		Title:     title(emailTemplateTitles, e.Template, "Email sent"),
		Subtitle:  e.Subject,
		Actor:     "system",
		Badge:     badge,
		Metadata: map[string]any{
			"template":  e.Template,
			"recipient": e.Recipient,
			"status":    e.Status,
		},
	}
}

// NormalizeAudit переводит запись аудита в событие ленты
func NormalizeAudit(a domain.AuditEntry) domain.TimelineEvent {
	metadata := map[string]any{"action": a.Action}
	if len(a.Details) > 0 {
		metadata["details"] = a.Details
	}

	var subtitle string
	if a.Reason != nil {
		subtitle = *a.Reason
		metadata["reason"] = *a.Reason
	}

	return domain.TimelineEvent{
		ID:        "admin:" + a.ID,
		Type:      domain.EventTypeAdminAction,
		Timestamp: a.CreatedAt,
		Title:     title(adminActionTitles, a.Action, "Admin action"),
		Subtitle:  subtitle,
		Actor:     a.ActorEmail,
		Badge:     "admin",
		Metadata:  metadata,
	}
}
