package egocar

import "github.com/akmonengine/egocar/actor"

const (
	POSE_ADVANCED EventType = iota
	POSE_TURNED
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// PoseAdvancedEvent is sent after a move along the heading
type PoseAdvancedEvent struct {
	Action   ActionKind
	Distance float64
	Pose     actor.Pose
}

func (e PoseAdvancedEvent) Type() EventType { return POSE_ADVANCED }

// PoseTurnedEvent is sent after a heading change
type PoseTurnedEvent struct {
	Action ActionKind
	Delta  float64 // degrees
	Pose   actor.Pose
}

func (e PoseTurnedEvent) Type() EventType { return POSE_TURNED }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event
}

func NewEvents() Events {
	return Events{
		listeners: make(map[EventType][]EventListener),
		buffer:    make([]Event, 0, 16),
	}
}

// Subscribe adds a listener for an event type. Events is not safe for
// concurrent use; App.Subscribe takes the App lock around it.
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

func (e *Events) emit(event Event) {
	e.buffer = append(e.buffer, event)
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
