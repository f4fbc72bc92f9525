// Package saga выполняет последовательность шагов с компенсацией:
// при ошибке шага уже выполненные шаги откатываются в обратном порядке.
package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/billing-backoffice/pkg/logger"
)

// Step один шаг саги. Compensate может быть nil, если откатывать нечего.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Result итог выполнения саги
type Result struct {
	// FailedStep имя упавшего шага, пусто при успехе
	FailedStep string
	// Compensated шаги, откат которых прошел успешно
	Compensated []string
	// CompensationErrors ошибки отката по именам шагов
	CompensationErrors map[string]error
}

// Reverted сообщает, что все выполненные шаги успешно откатились
func (r Result) Reverted() bool {
	return r.FailedStep != "" && len(r.CompensationErrors) == 0
}

// StepError ошибка шага саги
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Saga исполнитель шагов
type Saga struct {
	name  string
	steps []Step
	log   *logger.Logger
}

// New создает сагу
func New(name string, log *logger.Logger, steps ...Step) *Saga {
	return &Saga{name: name, steps: steps, log: log}
}

// Run выполняет шаги по порядку. При ошибке откатывает выполненные шаги
// с контекстом, отвязанным от отмены запроса. Ошибки отката не повторяются.
func (s *Saga) Run(ctx context.Context) (Result, error) {
	var result Result
	completed := make([]Step, 0, len(s.steps))

	for _, step := range s.steps {
		if err := step.Action(ctx); err != nil {
			result.FailedStep = step.Name
			s.log.Warnw("Saga step failed, compensating",
				"saga", s.name, "step", step.Name, "error", err)

			s.compensate(ctx, completed, &result)
			return result, &StepError{Step: step.Name, Err: err}
		}
		completed = append(completed, step)
	}

	return result, nil
}

func (s *Saga) compensate(ctx context.Context, completed []Step, result *Result) {
	cctx := context.WithoutCancel(ctx)

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}

		if err := step.Compensate(cctx); err != nil {
			if result.CompensationErrors == nil {
				result.CompensationErrors = make(map[string]error)
			}
			result.CompensationErrors[step.Name] = err
			s.log.Errorw("Saga compensation failed, manual reconciliation required",
				"saga", s.name, "step", step.Name, "error", err)
			continue
		}

		result.Compensated = append(result.Compensated, step.Name)
		s.log.Infow("Saga step compensated", "saga", s.name, "step", step.Name)
	}
}

// IsAmbiguous сообщает, что шаг прервался по таймауту или отмене и его
// внешний эффект неизвестен
func IsAmbiguous(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
