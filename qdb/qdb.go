package qdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/pg-sharding/rwsplit/pkg/config"
	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
)

// QDB stores persisted master-slave rules, one per logical database.
type QDB interface {
	PutMasterSlaveRule(ctx context.Context, db string, rule *config.MasterSlaveRuleCfg) error
	GetMasterSlaveRule(ctx context.Context, db string) (*config.MasterSlaveRuleCfg, error)
	DropMasterSlaveRule(ctx context.Context, db string) error
	ListMasterSlaveRules(ctx context.Context) ([]string, error)
	Close() error
}

// CheckDBName rejects logical database names that cannot be used as a single
// key under the rules namespace.
func CheckDBName(db string) error {
	if db == "" || db == "." || db == ".." || strings.Contains(db, "/") {
		return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "invalid db name \"%s\"", db)
	}
	return nil
}

func NewQDB(qdbType string, addr string, backupPath string) (QDB, error) {
	switch qdbType {
	case config.QDBTypeEtcd:
		q, err := NewEtcdQDB(addr)
		if err != nil {
			return nil, err
		}
		return q, nil
	case config.QDBTypeMem, "":
		q, err := RestoreQDB(backupPath)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("qdb implementation %s is invalid", qdbType)
	}
}
