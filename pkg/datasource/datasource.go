package datasource

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jmoiron/sqlx"
	"github.com/pg-sharding/rwsplit/pkg/models/masterslave"
	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
	"github.com/pg-sharding/rwsplit/pkg/rwlog"
	"github.com/pg-sharding/rwsplit/router/route"
)

// Registry holds the physical data sources master-slave groups refer to by name.
// Pools are opened lazily: registering a data source does not connect.
type Registry struct {
	mu  sync.RWMutex
	dbs map[string]*sqlx.DB
}

func NewRegistry() *Registry {
	return &Registry{
		dbs: map[string]*sqlx.DB{},
	}
}

// NewRegistryFromConfig registers every name -> DSN pair of dataSources.
func NewRegistryFromConfig(dataSources map[string]string) (*Registry, error) {
	r := NewRegistry()
	for name, dsn := range dataSources {
		if err := r.Register(name, dsn); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(name string, dsn string) error {
	if name == "" {
		return rwerror.New(rwerror.RW_INVALID_CONFIG, "data source name is empty")
	}
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "data source %q: %w", name, err)
	}
	connCfg.Tracer = &tracelog.TraceLog{
		Logger:   &rwlog.ZeroTraceLogger{},
		LogLevel: tracelog.LogLevelDebug,
	}
	db := sqlx.NewDb(stdlib.OpenDB(*connCfg), "pgx")

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.dbs[name]; ok {
		_ = db.Close()
		return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "data source %q already registered", name)
	}
	r.dbs[name] = db

	rwlog.Zero.Debug().
		Str("data source", name).
		Str("host", connCfg.Host).
		Uint("db", rwlog.GetPointer(db)).
		Msg("datasource: registered")
	return nil
}

func (r *Registry) Get(name string) (*sqlx.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	db, ok := r.dbs[name]
	if !ok {
		return nil, rwerror.Newf(rwerror.RW_UNKNOWN_DATASOURCE, "data source %q is not registered", name)
	}
	return db, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ret := make([]string, 0, len(r.dbs))
	for name := range r.dbs {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// CheckRule fails if any master or slave of rule is not registered.
func (r *Registry) CheckRule(rule *masterslave.Rule) error {
	for _, g := range rule.Groups {
		for _, name := range g.DataSourceNames() {
			if _, err := r.Get(name); err != nil {
				return rwerror.Newf(rwerror.RW_UNKNOWN_DATASOURCE, "group %q: data source %q is not registered", g.Name, name)
			}
		}
	}
	return nil
}

// Conn takes a dedicated connection from the named pool.
func (r *Registry) Conn(ctx context.Context, name string) (*sqlx.Conn, error) {
	db, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return db.Connx(ctx)
}

// BuildExecutionUnits opens one connection per routed unit and pairs them.
// Callers close the statements of the returned units once execution is over.
func (r *Registry) BuildExecutionUnits(ctx context.Context, units []*route.SQLUnit) ([]*route.ExecutionUnit, error) {
	for _, u := range units {
		if _, err := r.Get(u.DataSourceName); err != nil {
			return nil, err
		}
	}

	ret := make([]*route.ExecutionUnit, 0, len(units))
	for _, u := range units {
		conn, err := r.Conn(ctx, u.DataSourceName)
		if err != nil {
			_ = CloseUnits(ret)
			return nil, err
		}
		ret = append(ret, route.NewExecutionUnit(u, conn))
	}
	return ret, nil
}

// CloseUnits closes the statements held by units.
func CloseUnits(units []*route.ExecutionUnit) error {
	var errs []error
	for _, eu := range units {
		if eu.Statement() == nil {
			continue
		}
		if err := eu.Statement().Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, db := range r.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.dbs, name)
	}
	return errors.Join(errs...)
}
