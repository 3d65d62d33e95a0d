// Package tsa checks that physical data sources play the role a master-slave
// rule assigns to them: masters accept writes, slaves are read only.
package tsa

import (
	"context"
	"fmt"
	"time"

	"github.com/pg-sharding/rwsplit/pkg/datasource"
	"github.com/pg-sharding/rwsplit/pkg/models/masterslave"
	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
	"github.com/pg-sharding/rwsplit/pkg/rwlog"
	"github.com/pg-sharding/rwsplit/router/route"
)

const DefaultTSATimeout = 500 * time.Millisecond

const readOnlyQuery = "SHOW transaction_read_only"

type CheckResult struct {
	DataSourceName string
	Alive          bool
	RW             bool
	Reason         string
}

func parseReadOnly(v string) (rw bool, reason string, err error) {
	switch v {
	case "off":
		return true, "primary", nil
	case "on":
		return false, "replica", nil
	default:
		return false, "", fmt.Errorf("unexpected transaction_read_only value: %q", v)
	}
}

// CheckUnit runs the read-only probe on the unit's statement. Host failures are
// reported in the result, never as an error.
func CheckUnit(ctx context.Context, eu *route.ExecutionUnit) (CheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTSATimeout)
	defer cancel()

	ds := eu.SQLUnit().DataSourceName
	dead := func(err error, reason string) (CheckResult, error) {
		rwlog.Zero.Debug().
			Str("data source", ds).
			Err(err).
			Msg("tsa: " + reason)
		return CheckResult{DataSourceName: ds, Reason: reason}, nil
	}

	rows, err := eu.Statement().QueryContext(ctx, eu.SQLUnit().SQL)
	if err != nil {
		return dead(err, "failed to send transaction_read_only")
	}
	defer rows.Close()

	if !rows.Next() {
		return dead(rows.Err(), "no rows for transaction_read_only")
	}
	var v string
	if err := rows.Scan(&v); err != nil {
		return dead(err, "failed to scan transaction_read_only")
	}
	rw, reason, err := parseReadOnly(v)
	if err != nil {
		return dead(err, err.Error())
	}
	return CheckResult{
		DataSourceName: ds,
		Alive:          true,
		RW:             rw,
		Reason:         reason,
	}, nil
}

// ProbeUnits builds the read-only probe for every data source rule refers to,
// masters first within each group.
func ProbeUnits(rule *masterslave.Rule) []*route.SQLUnit {
	seen := map[string]struct{}{}
	var ret []*route.SQLUnit
	for _, g := range rule.Groups {
		for _, name := range g.DataSourceNames() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			ret = append(ret, route.NewSQLUnit(name, readOnlyQuery))
		}
	}
	return ret
}

// CheckRule probes every data source of rule concurrently.
func CheckRule(ctx context.Context, reg *datasource.Registry, rule *masterslave.Rule) ([]CheckResult, error) {
	units, err := reg.BuildExecutionUnits(ctx, ProbeUnits(rule))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := datasource.CloseUnits(units); err != nil {
			rwlog.Zero.Error().Err(err).Msg("tsa: failed to close probe connections")
		}
	}()

	return route.ExecuteUnits(ctx, units, CheckUnit)
}

// Verify matches probe results against the roles rule assigns.
func Verify(rule *masterslave.Rule, results []CheckResult) error {
	byName := make(map[string]CheckResult, len(results))
	for _, r := range results {
		byName[r.DataSourceName] = r
	}
	for _, g := range rule.Groups {
		for i, name := range g.DataSourceNames() {
			r, ok := byName[name]
			if !ok || !r.Alive {
				return rwerror.Newf(rwerror.RW_UNKNOWN_DATASOURCE, "group %q: data source %q is not alive: %s", g.Name, name, r.Reason)
			}
			if master := i == 0; master != r.RW {
				return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "group %q: data source %q is a %s", g.Name, name, r.Reason)
			}
		}
	}
	return nil
}
