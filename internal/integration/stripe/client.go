package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/billing-backoffice/pkg/logger"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// Provider операции платежного провайдера, нужные бэк-офису.
type Provider interface {
	// ExtendSubscriptionPeriod переносит конец текущего периода подписки через
	// trial_end без перерасчета.
	ExtendSubscriptionPeriod(ctx context.Context, subscriptionID string, periodEnd time.Time) error

	// ApplyCredit зачисляет amount (в минорных единицах) на баланс клиента.
	// Возвращает ID транзакции баланса.
	ApplyCredit(ctx context.Context, input CreditInput) (string, error)
}

// CreditInput параметры зачисления кредита
type CreditInput struct {
	StripeCustomerID string
	Amount           int64
	Currency         string
	Description      string
	IdempotencyKey   string
}

// stripeClient реализует Provider поверх stripe-go.
type stripeClient struct {
	client *client.API
	log    *logger.Logger
}

// NewStripeClient создает клиента Stripe с API ключом.
func NewStripeClient(apiKey string, log *logger.Logger) Provider {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return NewStripeClientWithAPI(sc, log)
}

// NewStripeClientWithAPI оборачивает уже настроенный client.API (нужно для тестов с подменой backend).
func NewStripeClientWithAPI(api *client.API, log *logger.Logger) Provider {
	return &stripeClient{client: api, log: log}
}

// ExtendSubscriptionPeriod обновляет trial_end подписки с proration_behavior=none.
func (sc *stripeClient) ExtendSubscriptionPeriod(ctx context.Context, subscriptionID string, periodEnd time.Time) error {
	params := &stripe.SubscriptionParams{
		TrialEnd:          stripe.Int64(periodEnd.Unix()),
		ProrationBehavior: stripe.String("none"),
		Params: stripe.Params{
			Context: ctx,
		},
	}

	sub, err := sc.client.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		logStripeError(sc.log, "ExtendSubscriptionPeriod", err)
		return fmt.Errorf("stripe: failed to extend subscription: %w", err)
	}

	sc.log.Infow("Stripe subscription period extended",
		"stripeSubscriptionID", sub.ID,
		"trialEnd", periodEnd.UTC().Format(time.RFC3339),
		"status", string(sub.Status),
	)
	return nil
}

// ApplyCredit создает отрицательную транзакцию баланса клиента.
func (sc *stripeClient) ApplyCredit(ctx context.Context, input CreditInput) (string, error) {
	params := &stripe.CustomerBalanceTransactionParams{
		Customer:    stripe.String(input.StripeCustomerID),
		Amount:      stripe.Int64(-input.Amount),
		Currency:    stripe.String(input.Currency),
		Description: stripe.String(input.Description),
		Params: stripe.Params{
			Context: ctx,
		},
	}
	if input.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(input.IdempotencyKey)
	}

	txn, err := sc.client.CustomerBalanceTransactions.New(params)
	if err != nil {
		logStripeError(sc.log, "ApplyCredit", err)
		return "", fmt.Errorf("stripe: failed to apply credit: %w", err)
	}

	sc.log.Infow("Stripe balance credit applied",
		"stripeCustomerID", input.StripeCustomerID,
		"transactionID", txn.ID,
		"amount", input.Amount,
		"currency", input.Currency,
	)
	return txn.ID, nil
}

// ProviderMessage извлекает исходное сообщение Stripe из ошибки.
func ProviderMessage(err error) string {
	if err == nil {
		return ""
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}

// logStripeError - вспомогательная функция для логирования деталей ошибки Stripe.
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"param", stripeErr.Param,
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", err,
		)
	}
}
