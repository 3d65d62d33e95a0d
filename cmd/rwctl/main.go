package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pg-sharding/rwsplit/pkg/config"
	"github.com/pg-sharding/rwsplit/pkg/datasource"
	"github.com/pg-sharding/rwsplit/pkg/models/masterslave"
	"github.com/pg-sharding/rwsplit/pkg/rwlog"
	"github.com/pg-sharding/rwsplit/pkg/swapper"
	"github.com/pg-sharding/rwsplit/pkg/tsa"
	"github.com/pg-sharding/rwsplit/qdb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	cfgPath  string
	logLevel string
	probe    bool
)

var rootCmd = &cobra.Command{
	Use:   "rwctl --config `path-to-config`",
	Short: "rwctl",
	Long:  "rwctl manages read/write-splitting rules",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		running, err := config.LoadCtlCfg(cfgPath)
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		cfg := config.CtlConfig()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		rwlog.ReloadLogger(cfg.LogFile, cfg.LogLevel, cfg.PrettyLog)
		rwlog.ReloadSLogger(cfg.StatementLogThreshold())
		if running != "" {
			rwlog.Zero.Debug().Str("config", running).Msg("rwctl: running config")
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: false,
}

// loadRule reads a persisted rule file and materializes it.
func loadRule(path string) (*masterslave.Rule, error) {
	cfg, err := config.LoadMasterSlaveRuleCfg(path)
	if err != nil {
		return nil, err
	}
	s, err := masterslave.LookupSwapper(swapper.Default)
	if err != nil {
		return nil, err
	}
	rule, err := s.FromPersisted(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "rule %s", path)
	}
	return rule, nil
}

func persistRule(rule *masterslave.Rule) (*config.MasterSlaveRuleCfg, error) {
	s, err := masterslave.LookupSwapper(swapper.Default)
	if err != nil {
		return nil, err
	}
	if masterslave.PropsLost(rule) {
		rwlog.Zero.Warn().Msg("rwctl: load balance strategy props are not persisted")
	}
	return s.ToPersisted(rule)
}

func printRule(w io.Writer, cfg *config.MasterSlaveRuleCfg) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

var openQDB = func() (qdb.QDB, error) {
	cfg := config.CtlConfig()
	return qdb.NewQDB(cfg.QdbType, cfg.QdbAddr, cfg.MemqdbBackupPath)
}

func closeQDB(db qdb.QDB) {
	if err := db.Close(); err != nil {
		rwlog.Zero.Error().Err(err).Msg("rwctl: failed to close qdb")
	}
}

var convertCmd = &cobra.Command{
	Use:   "convert <rule-file> [<out-file>]",
	Short: "validate a rule file and print or write its normalized form",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rule, err := loadRule(args[0])
		if err != nil {
			return err
		}
		cfg, err := persistRule(rule)
		if err != nil {
			return err
		}
		if len(args) == 2 {
			return config.WriteMasterSlaveRuleCfg(args[1], cfg)
		}
		return printRule(cmd.OutOrStdout(), cfg)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <rule-file>",
	Short: "validate a rule file against configured data sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rule, err := loadRule(args[0])
		if err != nil {
			return err
		}
		reg, err := datasource.NewRegistryFromConfig(config.CtlConfig().DataSources)
		if err != nil {
			return err
		}
		defer reg.Close()

		if err := reg.CheckRule(rule); err != nil {
			return err
		}
		if probe {
			results, err := tsa.CheckRule(cmd.Context(), reg, rule)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: alive=%t rw=%t %s\n", r.DataSourceName, r.Alive, r.RW, r.Reason)
			}
			if err := tsa.Verify(rule, results); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d groups ok\n", len(rule.Groups))
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <db> <rule-file>",
	Short: "store a rule for a logical database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rule, err := loadRule(args[1])
		if err != nil {
			return err
		}
		cfg, err := persistRule(rule)
		if err != nil {
			return err
		}
		db, err := openQDB()
		if err != nil {
			return errors.Wrap(err, "open qdb")
		}
		defer closeQDB(db)
		if err := db.PutMasterSlaveRule(context.Background(), args[0], cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %d groups for %s\n", cfg.DataSources.Len(), args[0])
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <db>",
	Short: "print the stored rule of a logical database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openQDB()
		if err != nil {
			return errors.Wrap(err, "open qdb")
		}
		defer closeQDB(db)
		cfg, err := db.GetMasterSlaveRule(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printRule(cmd.OutOrStdout(), cfg)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list logical databases with a stored rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openQDB()
		if err != nil {
			return errors.Wrap(err, "open qdb")
		}
		defer closeQDB(db)
		dbs, err := db.ListMasterSlaveRules(context.Background())
		if err != nil {
			return err
		}
		for _, name := range dbs {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop <db>",
	Short: "remove the stored rule of a logical database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openQDB()
		if err != nil {
			return errors.Wrap(err, "open qdb")
		}
		defer closeQDB(db)
		return db.DropMasterSlaveRule(context.Background(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to rwctl config file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level, overrides config")

	checkCmd.Flags().BoolVar(&probe, "probe", false, "connect to every data source and verify its master/slave role")

	rootCmd.AddCommand(convertCmd, checkCmd, pushCmd, showCmd, listCmd, dropCmd)

	if err := masterslave.RegisterSwapper(swapper.Default); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
