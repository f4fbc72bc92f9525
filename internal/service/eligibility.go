package service

import (
	"strings"

	"github.com/Dhoini/billing-backoffice/internal/domain"
)

// Verdict результат одного правила применимости промокода.
// Blocked нельзя снять флагом force, BlockedOverridable можно.
type Verdict int

const (
	Allowed Verdict = iota
	BlockedOverridable
	Blocked
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case BlockedOverridable:
		return "blocked_overridable"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Check вердикт правила с причиной
type Check struct {
	Rule    string
	Verdict Verdict
	Reason  string
}

type eligibilityInput struct {
	promo             domain.PromoCode
	customer          domain.Customer
	snapshot          *domain.BillingSnapshot
	activeRedemptions int
}

type predicate func(in eligibilityInput) Check

// Порядок правил определяет порядок причин в ответе
var eligibilityRules = []predicate{
	newCustomersOnlyRule,
	onePerCustomerRule,
	trialTierRule,
}

func newCustomersOnlyRule(in eligibilityInput) Check {
	c := Check{Rule: "new_customers_only"}
	if in.promo.NewCustomersOnly && in.snapshot.HasPaidHistory() {
		c.Verdict = BlockedOverridable
		c.Reason = "code is for new customers only and this customer has had a paid subscription"
	}
	return c
}

func onePerCustomerRule(in eligibilityInput) Check {
	c := Check{Rule: "one_per_customer"}
	if in.promo.OnePerCustomer && in.activeRedemptions > 0 {
		c.Verdict = BlockedOverridable
		c.Reason = "code has already been redeemed by this customer"
	}
	return c
}

// trialTierRule: продление триала только клиентам на триале
func trialTierRule(in eligibilityInput) Check {
	c := Check{Rule: "trial_tier"}
	if in.promo.Type != domain.PromoTypeExtendedTrial {
		return c
	}
	if domain.ResolveStatus(in.customer.PlanTier, in.snapshot) != domain.StatusActiveTrial {
		c.Verdict = Blocked
		c.Reason = "trial extension codes can only be applied to customers on " + string(domain.PlanTierFreeTrial)
	}
	return c
}

// Eligibility итог всех правил
type Eligibility struct {
	Checks []Check
}

func evaluateEligibility(in eligibilityInput) Eligibility {
	checks := make([]Check, 0, len(eligibilityRules))
	for _, rule := range eligibilityRules {
		checks = append(checks, rule(in))
	}
	return Eligibility{Checks: checks}
}

func (e Eligibility) reasons(v Verdict) []string {
	var out []string
	for _, c := range e.Checks {
		if c.Verdict == v {
			out = append(out, c.Reason)
		}
	}
	return out
}

// Overridden причины, снятые флагом force
func (e Eligibility) Overridden(force bool) []string {
	if !force {
		return nil
	}
	return e.reasons(BlockedOverridable)
}

// Resolve превращает вердикты в ошибку. Жесткий запрет всегда сильнее force.
func (e Eligibility) Resolve(force bool) error {
	if hard := e.reasons(Blocked); len(hard) > 0 {
		return domain.NewConflictError("%s", strings.Join(hard, "; "))
	}
	if soft := e.reasons(BlockedOverridable); len(soft) > 0 && !force {
		return &domain.RequiresForceError{Reasons: soft}
	}
	return nil
}
