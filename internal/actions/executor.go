package actions

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Executor runs actions against a MIDI output
type Executor struct {
	log      *zap.Logger
	handlers map[ActionType]ActionHandler
}

// NewExecutor creates a new action executor
func NewExecutor(out Output, resolver InstrumentResolver, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		log: log.Named("actions"),
		handlers: map[ActionType]ActionHandler{
			ActionTypeInstrument: NewInstrumentHandler(out, resolver),
			ActionTypeMidi:       NewMidiHandler(out),
			ActionTypePanic:      &PanicHandler{out: out},
			ActionTypeSleep:      &SleepHandler{},
		},
	}
}

// Execute runs an action based on its type
func (e *Executor) Execute(ctx context.Context, action *Action) (string, error) {
	if action == nil {
		return "", fmt.Errorf("action is nil")
	}

	handler, ok := e.handlers[action.Type]
	if !ok {
		return "", fmt.Errorf("unknown action type: %s", action.Type)
	}

	return handler.Execute(ctx, action.Code)
}

// Validate checks an action without running it
func (e *Executor) Validate(action *Action) error {
	handler, ok := e.handlers[action.Type]
	if !ok {
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
	return handler.Validate(action.Code)
}

// Run executes actions in order and stops at the first error.
func (e *Executor) Run(ctx context.Context, actions []Action) error {
	for i := range actions {
		a := &actions[i]
		out, err := e.Execute(ctx, a)
		if err != nil {
			e.log.Error("action failed", zap.String("action", a.Name), zap.String("type", string(a.Type)), zap.Error(err))
			return fmt.Errorf("action %q: %w", a.Name, err)
		}
		e.log.Info("action executed", zap.String("action", a.Name), zap.String("output", out))
	}
	return nil
}
