// Package swapper keeps the converters between runtime configuration values
// and their persisted documents, keyed by configuration kind.
package swapper

import (
	"sort"
	"sync"

	"github.com/pg-sharding/rwsplit/pkg/models/rwerror"
	"github.com/pg-sharding/rwsplit/pkg/rwlog"
)

type Kind string

const (
	KindMasterSlave = Kind("master_slave")
)

// Swapper converts a runtime value R to its persisted form P and back.
type Swapper[R any, P any] interface {
	ToPersisted(R) (P, error)
	FromPersisted(P) (R, error)
}

type Registry struct {
	mu       sync.RWMutex
	swappers map[Kind]any
}

var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		swappers: map[Kind]any{},
	}
}

// Register adds s under kind. A kind may be registered once.
func Register[R any, P any](reg *Registry, kind Kind, s Swapper[R, P]) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.swappers[kind]; ok {
		return rwerror.Newf(rwerror.RW_INVALID_CONFIG, "swapper for kind %q already registered", kind)
	}
	reg.swappers[kind] = s

	rwlog.Zero.Debug().Str("kind", string(kind)).Msg("swapper: registered")
	return nil
}

// Lookup returns the swapper registered under kind. It fails if nothing is
// registered or the registered swapper converts other types.
func Lookup[R any, P any](reg *Registry, kind Kind) (Swapper[R, P], error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	raw, ok := reg.swappers[kind]
	if !ok {
		return nil, rwerror.Newf(rwerror.RW_UNKNOWN_KIND, "no swapper registered for kind %q", kind)
	}
	s, ok := raw.(Swapper[R, P])
	if !ok {
		return nil, rwerror.Newf(rwerror.RW_UNKNOWN_KIND, "swapper for kind %q has type %T", kind, raw)
	}
	return s, nil
}

func (reg *Registry) Kinds() []Kind {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	ret := make([]Kind, 0, len(reg.swappers))
	for k := range reg.swappers {
		ret = append(ret, k)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i] < ret[j]
	})
	return ret
}
