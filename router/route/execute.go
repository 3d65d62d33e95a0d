package route

import (
	"context"
	"time"

	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
	"github.com/pg-sharding/rwsplit/pkg/rwlog"
	"golang.org/x/sync/errgroup"
)

// ExecuteUnits runs cb for every unit in its own goroutine and returns the
// results in unit order. The first error cancels ctx for the remaining units.
func ExecuteUnits[T any](ctx context.Context, units []*ExecutionUnit, cb func(ctx context.Context, eu *ExecutionUnit) (T, error)) ([]T, error) {
	ret := make([]T, len(units))
	g, gctx := errgroup.WithContext(ctx)

	for i, eu := range units {
		g.Go(func() error {
			t := time.Now()
			res, err := cb(gctx, eu)
			rwlog.SLogger.ReportStatement(eu.SQLUnit().DataSourceName, eu.SQLUnit().SQL, time.Since(t))
			if err != nil {
				rwlog.Zero.Error().
					Err(err).
					Str("data source", eu.SQLUnit().DataSourceName).
					Msg("execute units: unit failed")
				return rwerror.Newf(rwerror.RW_EXECUTION_ERROR, "%s: %w", eu.SQLUnit(), err)
			}
			ret[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Exec runs the unit's fragment on its statement handle.
func Exec(ctx context.Context, eu *ExecutionUnit) (int64, error) {
	res, err := eu.Statement().ExecContext(ctx, eu.SQLUnit().SQL, eu.SQLUnit().Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
