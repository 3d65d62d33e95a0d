package config

import (
	"encoding/json"
	"os"
	"time"

	"golang.org/x/xerrors"
)

const (
	QDBTypeMem  = "mem"
	QDBTypeEtcd = "etcd"
)

type Ctl struct {
	LogLevel  string `json:"log_level" toml:"log_level" yaml:"log_level"`
	LogFile   string `json:"log_file" toml:"log_file" yaml:"log_file"`
	PrettyLog bool   `json:"pretty_log" toml:"pretty_log" yaml:"pretty_log"`

	// milliseconds, -1 disables slow statement logging
	LogMinDurationStatement int64 `json:"log_min_duration_statement" toml:"log_min_duration_statement" yaml:"log_min_duration_statement"`

	QdbType          string `json:"qdb_type" toml:"qdb_type" yaml:"qdb_type"`
	QdbAddr          string `json:"qdb_addr" toml:"qdb_addr" yaml:"qdb_addr"`
	MemqdbBackupPath string `json:"memqdb_backup_path" toml:"memqdb_backup_path" yaml:"memqdb_backup_path"`

	// physical data source name -> connection string
	DataSources map[string]string `json:"data_sources" toml:"data_sources" yaml:"data_sources"`
}

var cfgCtl = defaultCtl()

func defaultCtl() Ctl {
	return Ctl{
		LogLevel:                "info",
		LogMinDurationStatement: -1,
		QdbType:                 QDBTypeMem,
	}
}

// LoadCtlCfg loads the rwctl config. An empty path keeps the defaults.
func LoadCtlCfg(cfgPath string) (string, error) {
	cfgCtl = defaultCtl()
	if cfgPath == "" {
		return "", nil
	}
	file, err := os.Open(cfgPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := initConfig(file, &cfgCtl); err != nil {
		return "", xerrors.Errorf("decode %s: %w", cfgPath, err)
	}
	if cfgCtl.QdbType != QDBTypeMem && cfgCtl.QdbType != QDBTypeEtcd {
		return "", xerrors.Errorf("qdb_type: unknown value %q, use %q or %q", cfgCtl.QdbType, QDBTypeMem, QDBTypeEtcd)
	}

	configBytes, err := json.MarshalIndent(cfgCtl, "", "  ")
	if err != nil {
		return "", err
	}
	return string(configBytes), nil
}

func CtlConfig() *Ctl {
	return &cfgCtl
}

// StatementLogThreshold returns log_min_duration_statement as a duration, or -1
// when slow statement logging is off.
func (c *Ctl) StatementLogThreshold() time.Duration {
	if c.LogMinDurationStatement < 0 {
		return -1
	}
	return time.Duration(c.LogMinDurationStatement) * time.Millisecond
}
