package actions

import (
	"context"
	"fmt"
)

// Builtin returns a registry preloaded with the handlers the document
// binds out of the box.
func Builtin() *Registry {
	r := New()

	r.Register("realizar_soma", Definition{
		Handler: func(ctx context.Context, req Request) (map[string]any, error) {
			a, b, err := operands(req)
			if err != nil {
				return nil, err
			}
			return map[string]any{"soma": a + b}, nil
		},
		Template: map[string]any{"u": 1, "a": nil, "b": nil},
	})

	r.Register("realizar_subtracao", Definition{
		Handler: func(ctx context.Context, req Request) (map[string]any, error) {
			a, b, err := operands(req)
			if err != nil {
				return nil, err
			}
			return map[string]any{"subtracao": a - b}, nil
		},
		Template: map[string]any{"u": 1, "a": nil, "b": nil},
	})

	r.Register("exibir_alertas", Definition{
		Handler: func(ctx context.Context, req Request) (map[string]any, error) {
			return map[string]any{"a": 1}, nil
		},
	})

	r.Register("exibir_cartoes", Definition{
		Handler: func(ctx context.Context, req Request) (map[string]any, error) {
			return map[string]any{"b": 2}, nil
		},
	})

	return r
}

func operands(req Request) (a, b int64, err error) {
	a, err = intInput(req, "a")
	if err != nil {
		return 0, 0, err
	}
	b, err = intInput(req, "b")
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// intInput reads a required integer from the action input.
// JSON numbers arrive as float64; whole values are accepted.
func intInput(req Request, name string) (int64, error) {
	raw, ok := req.Input[name]
	if !ok {
		return 0, fmt.Errorf("input %q is required", name)
	}

	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		n := int64(v)
		if float64(n) != v {
			return 0, fmt.Errorf("input %q must be an integer", name)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("input %q must be an integer", name)
	}
}
