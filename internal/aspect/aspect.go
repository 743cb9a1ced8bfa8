// Package aspect implements the cross-cutting interception pipeline. Instead
// of matching operations by name, every call declares an explicit capability
// set at its definition site; registered aspects decide from the call what to
// hook into.
package aspect

import (
	"context"
	"fmt"
)

// Capability tags declared by an operation at its definition site.
type Capability uint8

const (
	// CapMutating marks operations that write to the store.
	CapMutating Capability = 1 << iota
	// CapRequiresAuth marks operations needing an authenticated session.
	CapRequiresAuth
	// CapRequiresModerator marks operations additionally needing the moderator role.
	CapRequiresModerator
	// CapValidated marks operations whose payload is validated before execution.
	CapValidated
)

// Has reports whether the set contains the given capability.
func (c Capability) Has(flag Capability) bool {
	return c&flag != 0
}

// Call identifies one intercepted operation invocation.
type Call struct {
	Target       string
	Operation    string
	Capabilities Capability
	Payload      any
}

// Validator is implemented by call payloads that know how to validate
// themselves; the validation aspect invokes it for CapValidated calls.
type Validator interface {
	Validate() error
}

// Aspect is the base predicate every registered aspect exposes; hook behavior
// comes from the optional advice interfaces below.
type Aspect interface {
	Applies(call Call) bool
}

// BeforeAdvice runs ahead of the wrapped operation; a returned error aborts
// the call before it executes.
type BeforeAdvice interface {
	Aspect
	Before(ctx context.Context, call Call) error
}

// AfterReturningAdvice observes successful results.
type AfterReturningAdvice interface {
	Aspect
	AfterReturning(ctx context.Context, call Call, result any)
}

// AfterThrowingAdvice observes errors; it cannot suppress them.
type AfterThrowingAdvice interface {
	Aspect
	AfterThrowing(ctx context.Context, call Call, err error)
}

// AfterAdvice always runs last, regardless of outcome.
type AfterAdvice interface {
	Aspect
	After(ctx context.Context, call Call, result any, err error)
}

// Registry holds the ordered set of registered aspects.
type Registry struct {
	aspects []Aspect
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an aspect; aspects run in registration order.
func (r *Registry) Register(a Aspect) {
	r.aspects = append(r.aspects, a)
}

// Invoke runs the call through every matching aspect: before hooks (an error
// aborts the call), the wrapped function, then afterReturning or
// afterThrowing, and finally the after hooks in all cases.
func (r *Registry) Invoke(ctx context.Context, call Call, fn func(context.Context) (any, error)) (result any, err error) {
	matched := make([]Aspect, 0, len(r.aspects))
	for _, a := range r.aspects {
		if a.Applies(call) {
			matched = append(matched, a)
		}
	}

	defer func() {
		for _, a := range matched {
			if after, ok := a.(AfterAdvice); ok {
				after.After(ctx, call, result, err)
			}
		}
	}()

	for _, a := range matched {
		if before, ok := a.(BeforeAdvice); ok {
			if beforeErr := before.Before(ctx, call); beforeErr != nil {
				err = beforeErr
				return nil, err
			}
		}
	}

	result, err = fn(ctx)
	if err != nil {
		for _, a := range matched {
			if throwing, ok := a.(AfterThrowingAdvice); ok {
				throwing.AfterThrowing(ctx, call, err)
			}
		}
		return nil, err
	}

	for _, a := range matched {
		if returning, ok := a.(AfterReturningAdvice); ok {
			returning.AfterReturning(ctx, call, result)
		}
	}
	return result, nil
}

// Do invokes fn through the registry and returns its typed result.
func Do[T any](r *Registry, ctx context.Context, call Call, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	result, err := r.Invoke(ctx, call, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("aspect: %s.%s returned unexpected type %T", call.Target, call.Operation, result)
	}
	return typed, nil
}
