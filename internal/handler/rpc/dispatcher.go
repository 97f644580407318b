package rpc

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jgivc/proxyctl/internal/common"
)

type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
	}
}

// NewDefaultDispatcher registers a handler for every method in Methods and its alias.
func NewDefaultDispatcher(h *Handlers) *Dispatcher {
	d := NewDispatcher()
	for _, m := range Methods {
		d.Register(m, h.Handler(m))
	}
	for alias, m := range Aliases {
		d.Register(alias, h.Handler(m))
	}

	return d
}

func (d *Dispatcher) Register(method string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[method] = h
}

func (d *Dispatcher) Call(method string, params []Primitive) ([]Primitive, error) {
	d.mu.RLock()
	h, ok := d.handlers[method]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", method, common.ErrUnknownMethod)
	}

	return h(params), nil
}

func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	methods := make([]string, 0, len(d.handlers))
	for m := range d.handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)

	return methods
}
