package orchestration

import (
	"context"

	"scheduler_server/core/port/in"
	"scheduler_server/pkg/apperr"
)

// UseCase is a value with inputs baked in and a single execute operation. R
// is the use case's result type.
type UseCase[R any] interface {
	Permissions() []in.Permission
	Execute(ctx context.Context) (R, error)
}

// Subscriber observes a successfully executed use case's result. Subscriber
// failures are logged by the subscriber itself and never fail the use case.
type Subscriber[R any] func(ctx context.Context, result R)

// Execute runs uc and then invokes every subscriber in order. Subscriber
// failures do not affect the returned result.
func Execute[R any](ctx context.Context, uc UseCase[R], subscribers ...Subscriber[R]) (R, error) {
	result, err := uc.Execute(ctx)
	if err != nil {
		return result, err
	}
	for _, s := range subscribers {
		s(ctx, result)
	}
	return result, nil
}

// ExecuteWithPolicy checks that policy authorizes every permission uc
// declares before running it. On denial it returns Unauthorized without
// calling Execute.
func ExecuteWithPolicy[R any](ctx context.Context, uc UseCase[R], policy in.Policy, subscribers ...Subscriber[R]) (R, error) {
	var zero R
	if !policy.Authorizes(uc.Permissions()) {
		return zero, apperr.Unauthorized("policy does not authorize this operation")
	}
	return Execute(ctx, uc, subscribers...)
}
