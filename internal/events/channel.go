package events

import "github.com/kelindar/event"

// SubscribeToChannel forwards events of type T into ch for select-loop
// consumers such as SSE handlers. Events are dropped while ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// SubscribeAll forwards every session and viewer event into ch and returns
// a single unsubscribe function. Ordering holds only within one event type.
func SubscribeAll(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[SessionStartedEvent](bus, ch),
		SubscribeToChannel[SessionStoppedEvent](bus, ch),
		SubscribeToChannel[SessionLaunchFailedEvent](bus, ch),
		SubscribeToChannel[ViewerLaunchedEvent](bus, ch),
		SubscribeToChannel[SessionStateEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
