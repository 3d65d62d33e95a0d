package masterslave

import (
	"maps"
	"slices"

	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
)

// LoadBalanceStrategy names the algorithm that picks a slave for reads.
type LoadBalanceStrategy struct {
	Type  string
	Props map[string]string
}

func NewLoadBalanceStrategy(typ string, props map[string]string) *LoadBalanceStrategy {
	return &LoadBalanceStrategy{
		Type:  typ,
		Props: maps.Clone(props),
	}
}

// Group is a master and its slaves. A nil Strategy leaves slave choice to the
// router default policy.
type Group struct {
	Name                 string
	MasterDataSourceName string
	SlaveDataSourceNames []string
	Strategy             *LoadBalanceStrategy
}

func NewGroup(name, master string, slaves []string, strategy *LoadBalanceStrategy) (*Group, error) {
	g := &Group{
		Name:                 name,
		MasterDataSourceName: master,
		SlaveDataSourceNames: slices.Clone(slaves),
	}
	if strategy != nil {
		g.Strategy = NewLoadBalanceStrategy(strategy.Type, strategy.Props)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Group) Validate() error {
	if g.Name == "" {
		return rwerror.New(rwerror.RW_INVALID_CONFIG, "master-slave group name is empty")
	}
	if g.MasterDataSourceName == "" {
		return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "group %q: master data source name is empty", g.Name)
	}
	if len(g.SlaveDataSourceNames) == 0 {
		return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "group %q: no slave data sources", g.Name)
	}
	seen := make(map[string]struct{}, len(g.SlaveDataSourceNames))
	for _, s := range g.SlaveDataSourceNames {
		if s == "" {
			return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "group %q: slave data source name is empty", g.Name)
		}
		if s == g.MasterDataSourceName {
			return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "group %q: data source %q is both master and slave", g.Name, s)
		}
		if _, ok := seen[s]; ok {
			return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "group %q: duplicate slave data source %q", g.Name, s)
		}
		seen[s] = struct{}{}
	}
	if g.Strategy != nil && g.Strategy.Type == "" {
		return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "group %q: load balance strategy type is empty", g.Name)
	}
	return nil
}

// DataSourceNames returns the master followed by the slaves.
func (g *Group) DataSourceNames() []string {
	ret := make([]string, 0, len(g.SlaveDataSourceNames)+1)
	ret = append(ret, g.MasterDataSourceName)
	return append(ret, g.SlaveDataSourceNames...)
}

// Rule is the read/write-splitting policy of one logical database.
// Groups keep the order they were configured in.
type Rule struct {
	Groups []*Group
}

func NewRule(groups ...*Group) (*Rule, error) {
	r := &Rule{
		Groups: slices.Clone(groups),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks every group. Repeated group names are allowed here: the
// persisted form keeps the last of them.
func (r *Rule) Validate() error {
	for _, g := range r.Groups {
		if g == nil {
			return rwerror.New(rwerror.RW_INVALID_CONFIG, "nil master-slave group")
		}
		if err := g.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GetGroup returns the last group called name, nil if there is none.
func (r *Rule) GetGroup(name string) *Group {
	for i := len(r.Groups) - 1; i >= 0; i-- {
		if r.Groups[i].Name == name {
			return r.Groups[i]
		}
	}
	return nil
}

func (r *Rule) GroupNames() []string {
	ret := make([]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		ret = append(ret, g.Name)
	}
	return ret
}
