package timeline

import (
	"testing"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeLockboxAction(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	ev := NormalizeLockboxAction(domain.LockboxAction{
		ID:          "42",
		LockboxID:   "lb1",
		LockboxName: "Tax documents",
		Action:      "file_uploaded",
		ActorEmail:  "owner@example.com",
		Details:     map[string]any{"file": "w2.pdf"},
		CreatedAt:   ts,
	})

	assert.Equal(t, "lockbox:42", ev.ID)
	assert.Equal(t, domain.EventTypeLockboxAction, ev.Type)
	assert.Equal(t, "File uploaded", ev.Title)
	assert.Equal(t, "Tax documents", ev.Subtitle)
	assert.Equal(t, "owner@example.com", ev.Actor)
	assert.Equal(t, ts, ev.Timestamp)
	assert.Equal(t, map[string]any{"file": "w2.pdf"}, ev.Metadata["details"])
}

func TestNormalizers_TitleFallback(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.TimelineEvent
		want string
	}{
		{"unknown lockbox action", NormalizeLockboxAction(domain.LockboxAction{Action: "vault_rekeyed"}), "Vault Rekeyed"},
		{"empty lockbox action", NormalizeLockboxAction(domain.LockboxAction{}), "Lockbox activity"},
		{"unknown template", NormalizeEmail(domain.EmailLog{Template: "quarterly-digest"}), "Quarterly Digest"},
		{"empty template", NormalizeEmail(domain.EmailLog{}), "Email sent"},
		{"known admin action", NormalizeAudit(domain.AuditEntry{Action: domain.AuditActionCompMonth}), "Complimentary month"},
		{"unknown admin action", NormalizeAudit(domain.AuditEntry{Action: "plan_changed"}), "Plan Changed"},
		{"separators only", NormalizeAudit(domain.AuditEntry{Action: "__"}), "Admin action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.Title)
			assert.NotEmpty(t, tt.ev.Title)
		})
	}
}

func TestNormalizeEmailAndAudit(t *testing.T) {
	email := NormalizeEmail(domain.EmailLog{ID: "7", Template: "trial_ending", Subject: "3 days left", Recipient: "a@b.c"})
	assert.Equal(t, "email:7", email.ID)
	assert.Equal(t, "Trial ending reminder", email.Title)
	assert.Equal(t, "3 days left", email.Subtitle)
	assert.Equal(t, "sent", email.Badge)

	reason := "goodwill"
	audit := NormalizeAudit(domain.AuditEntry{ID: "9", Action: domain.AuditActionCreditApplied, ActorEmail: "ops@example.com", Reason: &reason})
	assert.Equal(t, "admin:9", audit.ID)
	assert.Equal(t, domain.EventTypeAdminAction, audit.Type)
	assert.Equal(t, "goodwill", audit.Subtitle)
	assert.Equal(t, "ops@example.com", audit.Actor)
	assert.Equal(t, "goodwill", audit.Metadata["reason"])
}
