package service

import (
	"context"

	"github.com/rl1809/storefront/internal/port"
)

// inScope runs fn inside a fresh scope and commits when fn succeeds.
func inScope(ctx context.Context, uow port.UnitOfWork, opts port.ScopeOptions, fn func(scope port.Scope) error) error {
	scope, err := uow.Begin(ctx, opts)
	if err != nil {
		return err
	}
	defer scope.Rollback()

	if err := fn(scope); err != nil {
		return err
	}
	return scope.Commit()
}
