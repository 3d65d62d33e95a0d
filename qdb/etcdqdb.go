package qdb

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pg-sharding/rwsplit/pkg/config"
	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
	"github.com/pg-sharding/rwsplit/pkg/rwlog"
	retry "github.com/sethvargo/go-retry"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type EtcdQDB struct {
	cli *clientv3.Client
}

var _ QDB = &EtcdQDB{}

const (
	masterSlaveRulesNamespace = "/master_slave_rules/"

	etcdDialTimeout = 5 * time.Second
	etcdMaxRetries  = 5
)

func NewEtcdQDB(addr string) (*EtcdQDB, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{addr},
		DialTimeout: etcdDialTimeout,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
	})
	if err != nil {
		return nil, err
	}

	rwlog.Zero.Debug().
		Str("address", addr).
		Uint("client", rwlog.GetPointer(cli)).
		Msg("etcdqdb: NewEtcdQDB")

	return &EtcdQDB{
		cli: cli,
	}, nil
}

func masterSlaveRuleNodePath(db string) string {
	return path.Join(masterSlaveRulesNamespace, db)
}

func (q *EtcdQDB) PutMasterSlaveRule(ctx context.Context, db string, rule *config.MasterSlaveRuleCfg) error {
	if err := CheckDBName(db); err != nil {
		return err
	}
	if rule == nil {
		return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "nil master-slave rule for db \"%s\"", db)
	}
	rwlog.Zero.Debug().
		Str("db", db).
		Strs("groups", rule.DataSources.Keys()).
		Msg("etcdqdb: put master-slave rule")

	bytes, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	resp, err := q.cli.Put(ctx, masterSlaveRuleNodePath(db), string(bytes))
	if err != nil {
		return err
	}

	rwlog.Zero.Debug().
		Interface("response", resp).
		Msg("etcdqdb: put master-slave rule")
	return nil
}

func (q *EtcdQDB) GetMasterSlaveRule(ctx context.Context, db string) (*config.MasterSlaveRuleCfg, error) {
	if err := CheckDBName(db); err != nil {
		return nil, err
	}
	rwlog.Zero.Debug().
		Str("db", db).
		Msg("etcdqdb: get master-slave rule")

	var resp *clientv3.GetResponse
	err := retry.Do(ctx, retry.WithMaxRetries(etcdMaxRetries, retry.NewFibonacci(100*time.Millisecond)), func(ctx context.Context) error {
		var err error
		resp, err = q.cli.Get(ctx, masterSlaveRuleNodePath(db))
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Kvs) == 0 {
		return nil, rwerror.Newf(rwerror.RW_NOT_FOUND, "master-slave rule for db \"%s\" not found", db)
	}

	rule := config.NewMasterSlaveRuleCfg()
	if err := json.Unmarshal(resp.Kvs[0].Value, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (q *EtcdQDB) DropMasterSlaveRule(ctx context.Context, db string) error {
	if err := CheckDBName(db); err != nil {
		return err
	}
	rwlog.Zero.Debug().
		Str("db", db).
		Msg("etcdqdb: drop master-slave rule")

	resp, err := q.cli.Delete(ctx, masterSlaveRuleNodePath(db))
	if err != nil {
		return err
	}
	if resp.Deleted == 0 {
		return rwerror.Newf(rwerror.RW_NOT_FOUND, "master-slave rule for db \"%s\" not found", db)
	}
	return nil
}

func (q *EtcdQDB) ListMasterSlaveRules(ctx context.Context) ([]string, error) {
	rwlog.Zero.Debug().Msg("etcdqdb: list master-slave rules")

	resp, err := q.cli.Get(ctx, masterSlaveRulesNamespace, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, err
	}

	ret := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		ret = append(ret, strings.TrimPrefix(string(kv.Key), masterSlaveRulesNamespace))
	}
	sort.Strings(ret)
	return ret, nil
}

func (q *EtcdQDB) Close() error {
	return q.cli.Close()
}
