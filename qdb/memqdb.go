package qdb

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/pg-sharding/rwsplit/pkg/config"
	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
	"github.com/pg-sharding/rwsplit/pkg/rwlog"
)

type MemQDB struct {
	mu sync.RWMutex

	MasterSlaveRules map[string]*config.MasterSlaveRuleCfg `json:"master_slave_rules"`

	backupPath string
}

var _ QDB = &MemQDB{}

func NewMemQDB(backupPath string) (*MemQDB, error) {
	return &MemQDB{
		MasterSlaveRules: map[string]*config.MasterSlaveRuleCfg{},

		backupPath: backupPath,
	}, nil
}

// RestoreQDB loads the state dumped to backupPath, creating the file when missing.
func RestoreQDB(backupPath string) (*MemQDB, error) {
	qdb, err := NewMemQDB(backupPath)
	if err != nil {
		return nil, err
	}
	if backupPath == "" {
		return qdb, nil
	}
	if _, err := os.Stat(backupPath); err != nil {
		rwlog.Zero.Info().Err(err).Msg("memqdb backup file not exists. Creating new one.")
		f, err := os.Create(backupPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return qdb, nil
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return qdb, nil
	}
	if err := json.Unmarshal(data, qdb); err != nil {
		return nil, err
	}
	if qdb.MasterSlaveRules == nil {
		qdb.MasterSlaveRules = map[string]*config.MasterSlaveRuleCfg{}
	}
	return qdb, nil
}

func (q *MemQDB) DumpState() error {
	if q.backupPath == "" {
		return nil
	}
	tmpPath := q.backupPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	state, err := json.MarshalIndent(q, "", "	")
	if err != nil {
		return err
	}

	if _, err = f.Write(state); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, q.backupPath)
}

func (q *MemQDB) PutMasterSlaveRule(ctx context.Context, db string, rule *config.MasterSlaveRuleCfg) error {
	if err := CheckDBName(db); err != nil {
		return err
	}
	if rule == nil {
		return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "nil master-slave rule for db \"%s\"", db)
	}
	rwlog.Zero.Debug().
		Str("db", db).
		Strs("groups", rule.DataSources.Keys()).
		Msg("memqdb: put master-slave rule")
	q.mu.Lock()
	defer q.mu.Unlock()

	return ExecuteCommands(q.DumpState, NewUpdateCommand(q.MasterSlaveRules, db, rule))
}

func (q *MemQDB) GetMasterSlaveRule(ctx context.Context, db string) (*config.MasterSlaveRuleCfg, error) {
	if err := CheckDBName(db); err != nil {
		return nil, err
	}
	rwlog.Zero.Debug().Str("db", db).Msg("memqdb: get master-slave rule")
	q.mu.RLock()
	defer q.mu.RUnlock()

	rule, ok := q.MasterSlaveRules[db]
	if !ok {
		return nil, rwerror.Newf(rwerror.RW_NOT_FOUND, "master-slave rule for db \"%s\" not found", db)
	}
	return rule, nil
}

func (q *MemQDB) DropMasterSlaveRule(ctx context.Context, db string) error {
	if err := CheckDBName(db); err != nil {
		return err
	}
	rwlog.Zero.Debug().Str("db", db).Msg("memqdb: drop master-slave rule")
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.MasterSlaveRules[db]; !ok {
		return rwerror.Newf(rwerror.RW_NOT_FOUND, "master-slave rule for db \"%s\" not found", db)
	}
	return ExecuteCommands(q.DumpState, NewDeleteCommand(q.MasterSlaveRules, db))
}

func (q *MemQDB) ListMasterSlaveRules(ctx context.Context) ([]string, error) {
	rwlog.Zero.Debug().Msg("memqdb: list master-slave rules")
	q.mu.RLock()
	defer q.mu.RUnlock()

	ret := make([]string, 0, len(q.MasterSlaveRules))
	for db := range q.MasterSlaveRules {
		ret = append(ret, db)
	}
	sort.Strings(ret)
	return ret, nil
}

func (q *MemQDB) Close() error {
	return nil
}
