package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pg-sharding/rwsplit/pkg/omap"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// MasterSlaveGroupCfg is the persisted form of one master/slave group. The group
// name is the key it is stored under in MasterSlaveRuleCfg.DataSources.
type MasterSlaveGroupCfg struct {
	MasterDataSourceName     string            `json:"masterDataSourceName" toml:"masterDataSourceName" yaml:"masterDataSourceName"`
	SlaveDataSourceNames     []string          `json:"slaveDataSourceNames" toml:"slaveDataSourceNames" yaml:"slaveDataSourceNames"`
	LoadBalanceAlgorithmType string            `json:"loadBalanceAlgorithmType,omitempty" toml:"loadBalanceAlgorithmType,omitempty" yaml:"loadBalanceAlgorithmType,omitempty"`
	Props                    map[string]string `json:"props,omitempty" toml:"props,omitempty" yaml:"props,omitempty"`
}

type MasterSlaveRuleCfg struct {
	DataSources *omap.Map[string, *MasterSlaveGroupCfg] `json:"dataSources" yaml:"dataSources"`
}

func NewMasterSlaveRuleCfg() *MasterSlaveRuleCfg {
	return &MasterSlaveRuleCfg{
		DataSources: omap.New[string, *MasterSlaveGroupCfg](),
	}
}

// tomlMasterSlaveRuleCfg mirrors MasterSlaveRuleCfg for the toml decoder, which
// has no ordered map support. Order is restored from the decoder metadata.
type tomlMasterSlaveRuleCfg struct {
	DataSources map[string]*MasterSlaveGroupCfg `toml:"dataSources"`
}

// LoadMasterSlaveRuleCfg reads a persisted master/slave rule document.
// The format is picked by file suffix: .yaml, .json or .toml.
func LoadMasterSlaveRuleCfg(cfgPath string) (*MasterSlaveRuleCfg, error) {
	file, err := os.Open(cfgPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ret := NewMasterSlaveRuleCfg()
	if strings.HasSuffix(file.Name(), ".toml") {
		if err := decodeTomlMasterSlaveRule(file, ret); err != nil {
			return nil, xerrors.Errorf("decode %s: %w", cfgPath, err)
		}
		return ret, nil
	}
	if err := initConfig(file, ret); err != nil {
		return nil, xerrors.Errorf("decode %s: %w", cfgPath, err)
	}
	if ret.DataSources == nil {
		ret.DataSources = omap.New[string, *MasterSlaveGroupCfg]()
	}
	return ret, nil
}

func decodeTomlMasterSlaveRule(file *os.File, ret *MasterSlaveRuleCfg) error {
	var raw tomlMasterSlaveRuleCfg
	md, err := toml.NewDecoder(file).Decode(&raw)
	if err != nil {
		return err
	}
	for _, key := range md.Keys() {
		if len(key) != 2 || key[0] != "dataSources" {
			continue
		}
		ret.DataSources.Set(key[1], raw.DataSources[key[1]])
	}
	return nil
}

// WriteMasterSlaveRuleCfg writes cfg to cfgPath as YAML or JSON, by suffix.
func WriteMasterSlaveRuleCfg(cfgPath string, cfg *MasterSlaveRuleCfg) error {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasSuffix(cfgPath, ".yaml"):
		data, err = yaml.Marshal(cfg)
	case strings.HasSuffix(cfgPath, ".json"):
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		return fmt.Errorf("unknown config format type: %s. Use .yaml or .json suffix in filename", cfgPath)
	}
	if err != nil {
		return xerrors.Errorf("encode master-slave rule: %w", err)
	}
	return os.WriteFile(cfgPath, data, 0644)
}
