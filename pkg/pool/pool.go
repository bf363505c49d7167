package pool

import "sync"

// Resettable values are cleared before being handed back out.
type Resettable interface {
	Reset()
}

// Pool is a typed wrapper around sync.Pool.
type Pool[V any] struct {
	p *sync.Pool
}

func New[V any](fn func() V) Pool[V] {
	return Pool[V]{p: &sync.Pool{New: func() any { return fn() }}}
}

func (p Pool[V]) Get() V {
	v := p.p.Get().(V)
	if r, ok := any(v).(Resettable); ok {
		r.Reset()
	}
	return v
}

func (p Pool[V]) Put(v V) {
	p.p.Put(v)
}
