package masterslave_test

import (
	"testing"

	"github.com/pg-sharding/rwsplit/pkg/config"
	"github.com/pg-sharding/rwsplit/pkg/models/masterslave"
	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
	"github.com/pg-sharding/rwsplit/pkg/swapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func mustGroup(t *testing.T, name, master string, slaves []string, strategy *masterslave.LoadBalanceStrategy) *masterslave.Group {
	t.Helper()
	g, err := masterslave.NewGroup(name, master, slaves, strategy)
	require.NoError(t, err)
	return g
}

func TestRuleToPersistedDocument(t *testing.T) {
	r := &masterslave.Rule{
		Groups: []*masterslave.Group{
			mustGroup(t, "ds0", "ds0m", []string{"ds0s1", "ds0s2"}, masterslave.NewLoadBalanceStrategy("ROUND_ROBIN", map[string]string{})),
		},
	}

	cfg, err := masterslave.RuleToPersisted(r)
	require.NoError(t, err)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, `dataSources:
  ds0:
    masterDataSourceName: ds0m
    slaveDataSourceNames:
    - ds0s1
    - ds0s2
    loadBalanceAlgorithmType: ROUND_ROBIN
`, string(out))
}

func TestRuleToPersistedCopiesSlaves(t *testing.T) {
	g := mustGroup(t, "ds0", "m", []string{"s0"}, nil)
	cfg, err := masterslave.RuleToPersisted(&masterslave.Rule{Groups: []*masterslave.Group{g}})
	require.NoError(t, err)

	pg, _ := cfg.DataSources.Get("ds0")
	pg.SlaveDataSourceNames[0] = "changed"
	assert.Equal(t, "s0", g.SlaveDataSourceNames[0])
}

func TestRuleToPersistedDuplicateNamesLastWins(t *testing.T) {
	assert := assert.New(t)

	r := &masterslave.Rule{
		Groups: []*masterslave.Group{
			mustGroup(t, "ds0", "first", []string{"s0"}, nil),
			mustGroup(t, "ds1", "m1", []string{"s1"}, nil),
			mustGroup(t, "ds0", "second", []string{"s2"}, masterslave.NewLoadBalanceStrategy("RANDOM", nil)),
		},
	}

	cfg, err := masterslave.RuleToPersisted(r)
	require.NoError(t, err)

	assert.Equal([]string{"ds0", "ds1"}, cfg.DataSources.Keys())
	pg, _ := cfg.DataSources.Get("ds0")
	assert.Equal("second", pg.MasterDataSourceName)
	assert.Equal([]string{"s2"}, pg.SlaveDataSourceNames)
	assert.Equal("RANDOM", pg.LoadBalanceAlgorithmType)
}

func TestRuleToPersistedRejectsInvalidGroup(t *testing.T) {
	r := &masterslave.Rule{
		Groups: []*masterslave.Group{
			{Name: "ds0", MasterDataSourceName: "m", SlaveDataSourceNames: []string{"m"}},
		},
	}
	cfg, err := masterslave.RuleToPersisted(r)
	assert.Nil(t, cfg)
	assert.True(t, rwerror.Is(err, rwerror.RW_INVALID_CONFIG))
}

func TestNoStrategyRoundTrip(t *testing.T) {
	assert := assert.New(t)

	r := &masterslave.Rule{
		Groups: []*masterslave.Group{mustGroup(t, "ds0", "m", []string{"s0"}, nil)},
	}
	cfg, err := masterslave.RuleToPersisted(r)
	require.NoError(t, err)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(string(out), "loadBalanceAlgorithmType")

	back, err := masterslave.RuleFromPersisted(cfg)
	require.NoError(t, err)
	require.Len(t, back.Groups, 1)
	assert.Nil(back.Groups[0].Strategy)
}

func TestRoundTripWithEmptyProps(t *testing.T) {
	assert := assert.New(t)

	r := &masterslave.Rule{
		Groups: []*masterslave.Group{
			mustGroup(t, "ds_b", "bm", []string{"bs1", "bs0"}, masterslave.NewLoadBalanceStrategy("ROUND_ROBIN", nil)),
			mustGroup(t, "ds_a", "am", []string{"as0"}, masterslave.NewLoadBalanceStrategy("RANDOM", map[string]string{})),
			mustGroup(t, "ds_c", "cm", []string{"cs0"}, nil),
		},
	}

	cfg, err := masterslave.RuleToPersisted(r)
	require.NoError(t, err)
	back, err := masterslave.RuleFromPersisted(cfg)
	require.NoError(t, err)

	require.Len(t, back.Groups, len(r.Groups))
	for i, g := range r.Groups {
		got := back.Groups[i]
		assert.Equal(g.Name, got.Name)
		assert.Equal(g.MasterDataSourceName, got.MasterDataSourceName)
		assert.Equal(g.SlaveDataSourceNames, got.SlaveDataSourceNames)
		if g.Strategy == nil {
			assert.Nil(got.Strategy)
			continue
		}
		require.NotNil(t, got.Strategy)
		assert.Equal(g.Strategy.Type, got.Strategy.Type)
		assert.Empty(got.Strategy.Props)
	}
	assert.False(masterslave.PropsLost(r))
}

// Strategy props are not written to the persisted form, so they do not survive
// a round trip.
func TestRoundTripDropsStrategyProps(t *testing.T) {
	assert := assert.New(t)

	r := &masterslave.Rule{
		Groups: []*masterslave.Group{
			mustGroup(t, "ds0", "m", []string{"s0"}, masterslave.NewLoadBalanceStrategy("WEIGHTED", map[string]string{"s0": "10"})),
		},
	}
	assert.True(masterslave.PropsLost(r))

	cfg, err := masterslave.RuleToPersisted(r)
	require.NoError(t, err)
	pg, _ := cfg.DataSources.Get("ds0")
	assert.Nil(pg.Props)

	back, err := masterslave.RuleFromPersisted(cfg)
	require.NoError(t, err)
	require.NotNil(t, back.Groups[0].Strategy)
	assert.Equal("WEIGHTED", back.Groups[0].Strategy.Type)
	assert.Empty(back.Groups[0].Strategy.Props)
	assert.NotEqual(r.Groups[0].Strategy.Props, back.Groups[0].Strategy.Props)
}

func TestRuleFromPersistedReadsProps(t *testing.T) {
	assert := assert.New(t)

	cfg := config.NewMasterSlaveRuleCfg()
	cfg.DataSources.Set("ds1", &config.MasterSlaveGroupCfg{
		MasterDataSourceName:     "m1",
		SlaveDataSourceNames:     []string{"s1"},
		LoadBalanceAlgorithmType: "WEIGHTED",
		Props:                    map[string]string{"s1": "3"},
	})
	cfg.DataSources.Set("ds0", &config.MasterSlaveGroupCfg{
		MasterDataSourceName: "m0",
		SlaveDataSourceNames: []string{"s0"},
		Props:                map[string]string{"ignored": "yes"},
	})

	r, err := masterslave.RuleFromPersisted(cfg)
	require.NoError(t, err)

	assert.Equal([]string{"ds1", "ds0"}, r.GroupNames())
	assert.Equal(&masterslave.LoadBalanceStrategy{Type: "WEIGHTED", Props: map[string]string{"s1": "3"}}, r.Groups[0].Strategy)
	assert.Nil(r.Groups[1].Strategy)
}

func TestRuleFromPersistedRejectsInvalidGroup(t *testing.T) {
	cfg := config.NewMasterSlaveRuleCfg()
	cfg.DataSources.Set("ok", &config.MasterSlaveGroupCfg{
		MasterDataSourceName: "m",
		SlaveDataSourceNames: []string{"s"},
	})
	cfg.DataSources.Set("bad", &config.MasterSlaveGroupCfg{
		MasterDataSourceName: "m",
	})
	cfg.DataSources.Set("nil", nil)

	r, err := masterslave.RuleFromPersisted(cfg)
	assert.Nil(t, r)
	assert.True(t, rwerror.Is(err, rwerror.RW_INVALID_CONFIG))
}

func TestRuleFromPersistedNil(t *testing.T) {
	r, err := masterslave.RuleFromPersisted(nil)
	require.NoError(t, err)
	assert.Empty(t, r.Groups)
}

func TestRuleToPersistedNil(t *testing.T) {
	cfg, err := masterslave.Swapper{}.ToPersisted(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.DataSources.Len())

	r, err := masterslave.Swapper{}.FromPersisted(cfg)
	require.NoError(t, err)
	assert.Empty(t, r.Groups)
}

func TestSwapperThroughRegistry(t *testing.T) {
	assert := assert.New(t)

	reg := swapper.NewRegistry()
	require.NoError(t, masterslave.RegisterSwapper(reg))

	s, err := masterslave.LookupSwapper(reg)
	require.NoError(t, err)

	r := &masterslave.Rule{
		Groups: []*masterslave.Group{mustGroup(t, "ds0", "m", []string{"s0"}, nil)},
	}
	cfg, err := s.ToPersisted(r)
	require.NoError(t, err)
	assert.Equal([]string{"ds0"}, cfg.DataSources.Keys())

	back, err := s.FromPersisted(cfg)
	require.NoError(t, err)
	assert.Equal(r.GroupNames(), back.GroupNames())

	assert.Error(masterslave.RegisterSwapper(reg))
}
