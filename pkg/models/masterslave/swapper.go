package masterslave

import (
	"slices"

	"github.com/pg-sharding/rwsplit/pkg/config"
	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
	"github.com/pg-sharding/rwsplit/pkg/rwlog"
	"github.com/pg-sharding/rwsplit/pkg/swapper"
)

// GroupToPersisted writes the strategy type only. Strategy props are not
// persisted.
func GroupToPersisted(g *Group) *config.MasterSlaveGroupCfg {
	ret := &config.MasterSlaveGroupCfg{
		MasterDataSourceName: g.MasterDataSourceName,
		SlaveDataSourceNames: slices.Clone(g.SlaveDataSourceNames),
	}
	if g.Strategy != nil {
		ret.LoadBalanceAlgorithmType = g.Strategy.Type
	}
	return ret
}

// GroupFromPersisted builds the group stored under name. An empty algorithm
// type means no strategy; otherwise the strategy takes the persisted props.
func GroupFromPersisted(name string, g *config.MasterSlaveGroupCfg) (*Group, error) {
	if g == nil {
		return nil, rwerror.Newf(rwerror.RW_INVALID_CONFIG, "group %q: empty definition", name)
	}
	var strategy *LoadBalanceStrategy
	if g.LoadBalanceAlgorithmType != "" {
		strategy = NewLoadBalanceStrategy(g.LoadBalanceAlgorithmType, g.Props)
	}
	return NewGroup(name, g.MasterDataSourceName, g.SlaveDataSourceNames, strategy)
}

// RuleToPersisted converts r group by group. When names repeat, the later group
// wins and the name keeps the position it was first seen at.
func RuleToPersisted(r *Rule) (*config.MasterSlaveRuleCfg, error) {
	ret := config.NewMasterSlaveRuleCfg()
	if r == nil {
		return ret, nil
	}
	for _, g := range r.Groups {
		if g == nil {
			return nil, rwerror.New(rwerror.RW_INVALID_CONFIG, "nil master-slave group")
		}
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if ret.DataSources.Set(g.Name, GroupToPersisted(g)) {
			rwlog.Zero.Warn().
				Str("group", g.Name).
				Msg("master-slave swapper: duplicate group name, keeping the last definition")
		}
	}
	return ret, nil
}

// RuleFromPersisted converts cfg in document order. Nothing is returned unless
// every group is valid.
func RuleFromPersisted(cfg *config.MasterSlaveRuleCfg) (*Rule, error) {
	ret := &Rule{}
	if cfg == nil {
		return ret, nil
	}
	err := cfg.DataSources.Range(func(name string, pg *config.MasterSlaveGroupCfg) error {
		g, err := GroupFromPersisted(name, pg)
		if err != nil {
			return err
		}
		ret.Groups = append(ret.Groups, g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	rwlog.Zero.Debug().
		Strs("groups", ret.GroupNames()).
		Msg("master-slave swapper: rule loaded")
	return ret, nil
}

type Swapper struct{}

var _ swapper.Swapper[*Rule, *config.MasterSlaveRuleCfg] = Swapper{}

func (Swapper) ToPersisted(r *Rule) (*config.MasterSlaveRuleCfg, error) {
	return RuleToPersisted(r)
}

func (Swapper) FromPersisted(cfg *config.MasterSlaveRuleCfg) (*Rule, error) {
	return RuleFromPersisted(cfg)
}

func RegisterSwapper(reg *swapper.Registry) error {
	return swapper.Register[*Rule, *config.MasterSlaveRuleCfg](reg, swapper.KindMasterSlave, Swapper{})
}

func LookupSwapper(reg *swapper.Registry) (swapper.Swapper[*Rule, *config.MasterSlaveRuleCfg], error) {
	return swapper.Lookup[*Rule, *config.MasterSlaveRuleCfg](reg, swapper.KindMasterSlave)
}

// PropsLost reports whether persisting r drops strategy props.
func PropsLost(r *Rule) bool {
	for _, g := range r.Groups {
		if g.Strategy != nil && len(g.Strategy.Props) > 0 {
			return true
		}
	}
	return false
}
