package tsa

import (
	"context"
	"errors"
	"testing"

	"github.com/pg-sharding/rwsplit/pkg/models/masterslave"
	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
	mock "github.com/pg-sharding/rwsplit/router/mock/route"
	"github.com/pg-sharding/rwsplit/router/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func someRule(t *testing.T) *masterslave.Rule {
	t.Helper()
	g0, err := masterslave.NewGroup("ds0", "m0", []string{"s0", "s1"}, nil)
	require.NoError(t, err)
	g1, err := masterslave.NewGroup("ds1", "m1", []string{"s1"}, nil)
	require.NoError(t, err)
	return &masterslave.Rule{Groups: []*masterslave.Group{g0, g1}}
}

func TestParseReadOnly(t *testing.T) {
	assert := assert.New(t)

	rw, reason, err := parseReadOnly("off")
	assert.NoError(err)
	assert.True(rw)
	assert.Equal("primary", reason)

	rw, reason, err = parseReadOnly("on")
	assert.NoError(err)
	assert.False(rw)
	assert.Equal("replica", reason)

	_, _, err = parseReadOnly("maybe")
	assert.Error(err)
}

func TestProbeUnits(t *testing.T) {
	var names []string
	for _, u := range ProbeUnits(someRule(t)) {
		assert.Equal(t, readOnlyQuery, u.SQL)
		names = append(names, u.DataSourceName)
	}
	assert.Equal(t, []string{"m0", "s0", "s1", "m1"}, names)
}

func TestCheckUnitDeadHost(t *testing.T) {
	ctrl := gomock.NewController(t)
	stmt := mock.NewMockStatement(ctrl)
	stmt.EXPECT().QueryContext(gomock.Any(), readOnlyQuery).Return(nil, errors.New("connection refused"))

	res, err := CheckUnit(context.Background(), route.NewExecutionUnit(route.NewSQLUnit("m0", readOnlyQuery), stmt))
	require.NoError(t, err)
	assert.Equal(t, CheckResult{DataSourceName: "m0", Reason: "failed to send transaction_read_only"}, res)
}

func TestVerify(t *testing.T) {
	rule := someRule(t)
	healthy := []CheckResult{
		{DataSourceName: "m0", Alive: true, RW: true, Reason: "primary"},
		{DataSourceName: "s0", Alive: true, Reason: "replica"},
		{DataSourceName: "s1", Alive: true, Reason: "replica"},
		{DataSourceName: "m1", Alive: true, RW: true, Reason: "primary"},
	}

	for _, tt := range []struct {
		name    string
		mutate  func([]CheckResult) []CheckResult
		errCode string
	}{
		{
			name:   "healthy",
			mutate: func(r []CheckResult) []CheckResult { return r },
		},
		{
			name: "dead slave",
			mutate: func(r []CheckResult) []CheckResult {
				r[2] = CheckResult{DataSourceName: "s1", Reason: "failed to send transaction_read_only"}
				return r
			},
			errCode: rwerror.RW_UNKNOWN_DATASOURCE,
		},
		{
			name:    "missing master",
			mutate:  func(r []CheckResult) []CheckResult { return r[1:] },
			errCode: rwerror.RW_UNKNOWN_DATASOURCE,
		},
		{
			name: "master is a replica",
			mutate: func(r []CheckResult) []CheckResult {
				r[3] = CheckResult{DataSourceName: "m1", Alive: true, Reason: "replica"}
				return r
			},
			errCode: rwerror.RW_INVALID_CONFIG,
		},
		{
			name: "slave accepts writes",
			mutate: func(r []CheckResult) []CheckResult {
				r[1] = CheckResult{DataSourceName: "s0", Alive: true, RW: true, Reason: "primary"}
				return r
			},
			errCode: rwerror.RW_INVALID_CONFIG,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			results := tt.mutate(append([]CheckResult(nil), healthy...))
			err := Verify(rule, results)
			if tt.errCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, rwerror.Is(err, tt.errCode), "got %v", err)
		})
	}
}
