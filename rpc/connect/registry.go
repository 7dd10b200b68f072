package connect

import (
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps a host to its live invoker. Membership is the single source of
// truth for "is this host connected".
type Registry struct {
	invokers *xsync.MapOf[host.Host, *Invoker]
}

func NewRegistry() *Registry {
	return &Registry{invokers: xsync.NewMapOf[host.Host, *Invoker]()}
}

func (r *Registry) Put(h host.Host, inv *Invoker) {
	r.invokers.Store(h, inv)
}

func (r *Registry) Get(h host.Host) (*Invoker, bool) {
	return r.invokers.Load(h)
}

func (r *Registry) Contains(h host.Host) bool {
	_, ok := r.invokers.Load(h)
	return ok
}

// Del removes the entry of h and returns the removed invoker
func (r *Registry) Del(h host.Host) (*Invoker, bool) {
	return r.invokers.LoadAndDelete(h)
}

// DelIf removes the entry of h only if it still refers to inv
func (r *Registry) DelIf(h host.Host, inv *Invoker) bool {
	removed := false
	r.invokers.Compute(h, func(cur *Invoker, loaded bool) (*Invoker, bool) {
		if loaded && cur == inv {
			removed = true
			return nil, true
		}
		// keep the current entry, do not store anything if absent
		return cur, !loaded
	})
	return removed
}

func (r *Registry) Range(f func(h host.Host, inv *Invoker) bool) {
	r.invokers.Range(f)
}

func (r *Registry) Len() int {
	return r.invokers.Size()
}
