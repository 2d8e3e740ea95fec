package physics

// ListenerID identifies a registered listener so it can be removed.
type ListenerID uint64

// Event is a multicast callback list with removable listeners.
type Event[T any] struct {
	listeners []listener[T]
	next      ListenerID
}

type listener[T any] struct {
	id ListenerID
	fn func(T)
}

// AddListener registers fn and returns an id for RemoveListener. A nil fn is ignored
// and returns 0.
func (e *Event[T]) AddListener(fn func(T)) ListenerID {
	if fn == nil {
		return 0
	}
	e.next++
	e.listeners = append(e.listeners, listener[T]{id: e.next, fn: fn})
	return e.next
}

// RemoveListener unregisters a listener. Unknown ids are ignored.
func (e *Event[T]) RemoveListener(id ListenerID) {
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *Event[T]) RemoveAllListeners() {
	e.listeners = nil
}

// Invoke calls every listener in registration order.
func (e *Event[T]) Invoke(arg T) {
	for _, l := range e.listeners {
		l.fn(arg)
	}
}

func (e *Event[T]) ListenerCount() int {
	return len(e.listeners)
}
