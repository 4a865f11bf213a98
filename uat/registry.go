package uat

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"golang.org/x/sync/semaphore"
)

// Handler reacts to a dispatched line. args is the remainder of the line
// after the registered prefix, with leading spaces and the terminator
// removed.
//
// OnLine runs on the consumer goroutine after the registry lock has been
// released, so it may call Register, RegisterPriority or Unregister. It
// should return quickly: no other line is dispatched until it does.
type Handler interface {
	OnLine(args string)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(args string)

// OnLine implements Handler.
func (f HandlerFunc) OnLine(args string) {
	f(args)
}

type entry struct {
	prefix  string
	handler Handler
}

// Registry is an ordered table of command prefixes. Entries closer to the
// front are tried first; prefixes are unique.
//
// The table lock is a one-slot semaphore so that some callers can bound
// their wait with a context. Every holder keeps it only for a scan or an
// in-memory mutation, never across a blocking call, which is what makes the
// unbounded acquisitions below safe.
type Registry struct {
	sem       *semaphore.Weighted
	entries   []entry
	capacity  int
	maxPrefix int
}

// NewRegistry returns an empty table holding at most capacity entries.
// Prefixes must be shorter than maxPrefix bytes.
func NewRegistry(capacity, maxPrefix int) *Registry {
	return &Registry{
		sem:       semaphore.NewWeighted(1),
		entries:   make([]entry, 0, capacity),
		capacity:  capacity,
		maxPrefix: maxPrefix,
	}
}

// lock waits for the table without a bound.
func (r *Registry) lock() {
	// Acquire only fails on a done context.
	_ = r.sem.Acquire(context.Background(), 1)
}

func (r *Registry) lockContext(ctx context.Context) error {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: command table: %w", ErrBusy, err)
	}
	return nil
}

func (r *Registry) unlock() {
	r.sem.Release(1)
}

func (r *Registry) validate(prefix string, h Handler) error {
	if prefix == "" || len(prefix) >= r.maxPrefix {
		return fmt.Errorf("%w: prefix %q", ErrInvalidArg, prefix)
	}
	if isNilHandler(h) {
		return fmt.Errorf("%w: nil handler for %q", ErrInvalidArg, prefix)
	}
	return nil
}

// isNilHandler also catches nil pointers and funcs wrapped in the interface.
func isNilHandler(h Handler) bool {
	if h == nil {
		return true
	}
	switch v := reflect.ValueOf(h); v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Register adds prefix at the end of the table, or replaces the handler of
// an existing entry without moving it.
func (r *Registry) Register(prefix string, h Handler) error {
	if err := r.validate(prefix, h); err != nil {
		return err
	}
	r.lock()
	defer r.unlock()
	return r.setLocked(prefix, h)
}

// RegisterPriority moves or inserts prefix at the front of the table, ahead
// of everything registered before. It is meant for unsolicited result codes.
func (r *Registry) RegisterPriority(prefix string, h Handler) error {
	if err := r.validate(prefix, h); err != nil {
		return err
	}
	r.lock()
	defer r.unlock()

	if i := r.indexLocked(prefix); i >= 0 {
		r.entries = append(r.entries[:i], r.entries[i+1:]...)
	} else if len(r.entries) >= r.capacity {
		return fmt.Errorf("%w: command table full (%d)", ErrResource, r.capacity)
	}
	r.entries = append(r.entries, entry{})
	copy(r.entries[1:], r.entries)
	r.entries[0] = entry{prefix: prefix, handler: h}
	return nil
}

// Unregister removes prefix, keeping the order of the remaining entries.
func (r *Registry) Unregister(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("%w: empty prefix", ErrInvalidArg)
	}
	r.lock()
	defer r.unlock()
	if !r.removeLocked(prefix) {
		return fmt.Errorf("%w: %q", ErrNotFound, prefix)
	}
	return nil
}

// Dispatch invokes the handler of the first entry whose prefix starts line
// and reports whether one matched. line must not contain the terminator.
//
// The table lock is held only while scanning; the handler runs after it has
// been released. Unmatched lines are dropped.
func (r *Registry) Dispatch(line []byte) bool {
	return r.dispatch(line, nil)
}

// dispatch runs hook under the table lock before the scan.
func (r *Registry) dispatch(line []byte, hook func()) bool {
	r.lock()
	if hook != nil {
		hook()
	}
	var (
		h       Handler
		args    []byte
		matched bool
	)
	for _, e := range r.entries {
		if len(line) >= len(e.prefix) && string(line[:len(e.prefix)]) == e.prefix {
			h, args, matched = e.handler, line[len(e.prefix):], true
			break
		}
	}
	r.unlock()

	if !matched || h == nil {
		return false
	}
	h.OnLine(strings.TrimLeft(string(args), " "))
	return true
}

// Prefixes returns the registered prefixes in dispatch order.
func (r *Registry) Prefixes() []string {
	r.lock()
	defer r.unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.prefix
	}
	return out
}

// Len returns the number of registered prefixes.
func (r *Registry) Len() int {
	r.lock()
	defer r.unlock()
	return len(r.entries)
}

// Cap returns the capacity of the table.
func (r *Registry) Cap() int {
	return r.capacity
}

func (r *Registry) indexLocked(prefix string) int {
	for i, e := range r.entries {
		if e.prefix == prefix {
			return i
		}
	}
	return -1
}

func (r *Registry) setLocked(prefix string, h Handler) error {
	if i := r.indexLocked(prefix); i >= 0 {
		r.entries[i].handler = h
		return nil
	}
	if len(r.entries) >= r.capacity {
		return fmt.Errorf("%w: command table full (%d)", ErrResource, r.capacity)
	}
	r.entries = append(r.entries, entry{prefix: prefix, handler: h})
	return nil
}

func (r *Registry) removeLocked(prefix string) bool {
	i := r.indexLocked(prefix)
	if i < 0 {
		return false
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	return true
}

func (r *Registry) handlerLocked(prefix string) Handler {
	if i := r.indexLocked(prefix); i >= 0 {
		return r.entries[i].handler
	}
	return nil
}
