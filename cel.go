package sheetwatch

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"github.com/Songmu/flextime"
	"github.com/goccy/go-yaml"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
	"github.com/pullus/sheetwatch/pkg/sheetevent"
)

//go:embed cel_validation_patterns.json
var celValidationPatternsJSON []byte

// CELEnv provides a CEL environment configured for evaluating expressions
// against sheetevent.Outcome.
type CELEnv struct {
	env                *cel.Env
	validationPatterns []*sheetevent.Outcome
}

// NewCELEnv creates a new CEL environment with sheetevent types registered.
// Field names in CEL expressions use lowerCamelCase (matching JSON tags),
// e.g., outcome.firstRun, outcome.worksheets. worksheets is a shorthand for
// outcome.worksheets and detectedAt is the current time as a CEL timestamp.
func NewCELEnv() (*CELEnv, error) {
	env, err := cel.NewEnv(
		ext.NativeTypes(
			ext.ParseStructTags(true),
			reflect.TypeOf(&sheetevent.Outcome{}),
		),
		cel.Variable("outcome", cel.ObjectType("sheetevent.Outcome")),
		cel.Variable("worksheets", cel.ListType(cel.StringType)),
		cel.Variable("detectedAt", cel.TimestampType),
		ext.Strings(),
		cel.Function("env",
			cel.Overload("env_string",
				[]*cel.Type{cel.StringType},
				cel.StringType,
				cel.UnaryBinding(func(arg ref.Val) ref.Val {
					name, ok := arg.Value().(string)
					if !ok {
						return types.NewErr("env() requires a string argument")
					}
					return types.String(os.Getenv(name))
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	var patterns []*sheetevent.Outcome
	if err := json.Unmarshal(celValidationPatternsJSON, &patterns); err != nil {
		return nil, fmt.Errorf("failed to parse CEL validation patterns: %w", err)
	}
	return &CELEnv{env: env, validationPatterns: patterns}, nil
}

func celVars(outcome *sheetevent.Outcome) map[string]any {
	worksheets := outcome.Worksheets
	if worksheets == nil {
		worksheets = []string{}
	}
	return map[string]any{
		"outcome":    outcome,
		"worksheets": worksheets,
		"detectedAt": flextime.Now(),
	}
}

type program struct {
	prg cel.Program
}

func (e *CELEnv) compile(expr string, want *cel.Type) (program, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return program{}, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(want) {
		return program{}, fmt.Errorf("CEL expression must return %s, got %s", want, ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return program{}, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return program{prg: prg}, nil
}

func evalAs[T any](p program, outcome *sheetevent.Outcome) (T, error) {
	var zero T
	if outcome == nil {
		return zero, nil
	}
	result, _, err := p.prg.Eval(celVars(outcome))
	if err != nil {
		return zero, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}
	v, ok := result.Value().(T)
	if !ok {
		return zero, fmt.Errorf("CEL expression returned %T, want %T", result.Value(), zero)
	}
	return v, nil
}

// CompiledExpression is a CEL expression returning bool.
type CompiledExpression struct {
	program
}

// Compile compiles a CEL expression that returns a bool.
func (e *CELEnv) Compile(expr string) (*CompiledExpression, error) {
	p, err := e.compile(expr, cel.BoolType)
	if err != nil {
		return nil, err
	}
	return &CompiledExpression{p}, nil
}

// Eval evaluates the expression against outcome. A nil outcome yields false.
func (c *CompiledExpression) Eval(outcome *sheetevent.Outcome) (bool, error) {
	return evalAs[bool](c.program, outcome)
}

// StringExpression is a CEL expression returning string.
type StringExpression struct {
	program
}

// CompileString compiles a CEL expression that returns a string.
func (e *CELEnv) CompileString(expr string) (*StringExpression, error) {
	p, err := e.compile(expr, cel.StringType)
	if err != nil {
		return nil, err
	}
	return &StringExpression{p}, nil
}

func (s *StringExpression) Eval(outcome *sheetevent.Outcome) (string, error) {
	return evalAs[string](s.program, outcome)
}

// ExprOrString holds either a CEL string expression or a static string value.
type ExprOrString struct {
	raw    string
	isExpr bool
	expr   *StringExpression
}

// NewExprOrString returns an unbound value holding raw.
func NewExprOrString(raw string) ExprOrString {
	return ExprOrString{raw: raw}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *ExprOrString) UnmarshalYAML(data []byte) error {
	return yaml.Unmarshal(data, &e.raw)
}

// Bind compiles the expression if valid, otherwise treats it as a static value.
// When it's an expression, validates it against all validation patterns to ensure it evaluates correctly.
func (e *ExprOrString) Bind(env *CELEnv) error {
	expr, err := env.CompileString(e.raw)
	if err != nil {
		// plain text such as a card title
		e.isExpr = false
		return nil
	}
	for i, pattern := range env.validationPatterns {
		if _, err := expr.Eval(pattern); err != nil {
			return fmt.Errorf("CEL expression validation failed on pattern[%d]: %w", i, err)
		}
	}
	e.expr = expr
	e.isExpr = true
	return nil
}

// Eval evaluates the expression or returns the static value.
func (e *ExprOrString) Eval(outcome *sheetevent.Outcome) (string, error) {
	if !e.isExpr {
		return e.raw, nil
	}
	return e.expr.Eval(outcome)
}

// IsExpr returns true if this holds an expression.
func (e *ExprOrString) IsExpr() bool {
	return e.isExpr
}

// Raw returns the raw string value.
func (e *ExprOrString) Raw() string {
	return e.raw
}

// ExprOrBool holds either a CEL bool expression or a static bool value.
type ExprOrBool struct {
	raw    string
	value  bool
	isExpr bool
	expr   *CompiledExpression
}

// NewExprOrBool returns an unbound value holding raw.
func NewExprOrBool(raw string) ExprOrBool {
	return ExprOrBool{raw: raw}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *ExprOrBool) UnmarshalYAML(data []byte) error {
	return yaml.Unmarshal(data, &e.raw)
}

// Bind compiles the expression if valid, otherwise parses as a static bool.
// When it's an expression, validates it against all validation patterns to ensure it evaluates correctly.
func (e *ExprOrBool) Bind(env *CELEnv) error {
	expr, err := env.Compile(e.raw)
	if err != nil {
		switch e.raw {
		case "true":
			e.value = true
		case "false":
			e.value = false
		default:
			return fmt.Errorf("invalid bool value %q: %w", e.raw, err)
		}
		return nil
	}
	for i, pattern := range env.validationPatterns {
		if _, err := expr.Eval(pattern); err != nil {
			return fmt.Errorf("CEL expression validation failed on pattern[%d]: %w", i, err)
		}
	}
	e.expr = expr
	e.isExpr = true
	return nil
}

// Eval evaluates the expression or returns the static value.
func (e *ExprOrBool) Eval(outcome *sheetevent.Outcome) (bool, error) {
	if !e.isExpr {
		return e.value, nil
	}
	return e.expr.Eval(outcome)
}

// IsExpr returns true if this holds an expression.
func (e *ExprOrBool) IsExpr() bool {
	return e.isExpr
}

// Raw returns the raw string value.
func (e *ExprOrBool) Raw() string {
	return e.raw
}
