package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// EventVariable is the name normalized events are bound to in expressions.
const EventVariable = "event"

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(EventVariable, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

func (e *Evaluator) ValidateFilterExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

// Filter is a compiled boolean expression over one event.
type Filter struct {
	expression string
	program    cel.Program
}

// CompileFilter compiles expression once so it can be evaluated per event.
func (e *Evaluator) CompileFilter(expression string) (*Filter, error) {
	if err := e.ValidateFilterExpression(expression); err != nil {
		return nil, err
	}

	ast, _ := e.env.Compile(expression)
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Filter{expression: expression, program: program}, nil
}

func (f *Filter) Expression() string {
	return f.expression
}

// Matches evaluates the filter against the flattened event fields.
func (f *Filter) Matches(ctx context.Context, event map[string]interface{}) (bool, error) {
	result, _, err := f.program.ContextEval(ctx, map[string]interface{}{EventVariable: event})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}
