package profile

import (
	"fmt"
	"reflect"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// env is the evaluation environment of a modifier expression. The value being
// modified is bound to "value".
func env(value string) map[string]any {
	return map[string]any{"value": value}
}

// compileModifier compiles expression to a program that must yield a string.
// Besides expr's builtins (upper, lower, trim, ...) modifiers may call
// truncate(s, n).
func compileModifier(expression string) (*exprvm.Program, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(env("")),
		exprlang.AsKind(reflect.String),
		exprlang.Function("truncate", truncate, new(func(string, int) string)),
	)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	return program, nil
}

// truncate cuts s to at most n runes, appending an ellipsis when it cut.
func truncate(params ...any) (any, error) {
	s, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("truncate: want string, got %T", params[0])
	}
	n, ok := params[1].(int)
	if !ok {
		return nil, fmt.Errorf("truncate: want int, got %T", params[1])
	}
	if n < 0 {
		return nil, fmt.Errorf("truncate: negative length %d", n)
	}
	r := []rune(s)
	if len(r) <= n {
		return s, nil
	}
	if n == 0 {
		return "", nil
	}
	return string(r[:n-1]) + "…", nil
}
