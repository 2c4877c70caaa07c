package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted in tick N are readable
// in tick N+1. SwapBuffers() is called at tick start by EventDispatchSystem.
//
// Event types are dispatched in the order they were first seen, so delivery
// order is a function of emission order only.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]any
	order    []reflect.Type
	known    map[reflect.Type]struct{}
	taps     []func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]any),
		known:    make(map[reflect.Type]struct{}),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (b *Bus) track(t reflect.Type) {
	if _, ok := b.known[t]; ok {
		return
	}
	b.known[t] = struct{}{}
	b.order = append(b.order, t)
}

// Emit 將事件放入後緩衝（下一 tick 才可讀取）。
func Emit[T any](b *Bus, event T) {
	t := typeOf[T]()
	b.track(t)
	b.back[t] = append(b.back[t], event)
}

// Subscribe 註冊型別 T 的事件處理器。
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.track(t)
	b.handlers[t] = append(b.handlers[t], fn)
}

// Tap registers a handler that sees every dispatched event regardless of
// type. Used by outward-facing observers.
func (b *Bus) Tap(fn func(any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taps = append(b.taps, fn)
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at tick start.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// Pending 回傳前緩衝中等待處理的事件數。
func (b *Bus) Pending() int {
	n := 0
	for _, evs := range b.front {
		n += len(evs)
	}
	return n
}

// DispatchAll delivers all front-buffer events to their subscribed handlers
// and then clears the front buffer.
func (b *Bus) DispatchAll() {
	for _, t := range b.order {
		events := b.front[t]
		if len(events) == 0 {
			continue
		}
		handlers := b.handlers[t]
		for _, ev := range events {
			for _, h := range handlers {
				// Safe because Subscribe and Emit use the same type key.
				callHandler(h, ev)
			}
			for _, tap := range b.taps {
				tap(ev)
			}
		}
		b.front[t] = events[:0]
	}
}

func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
