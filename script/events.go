package script

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventFunc runs when a timed event comes due.
type EventFunc func(ctx context.Context) error

type timedEvent struct {
	executeAt time.Time
	fn        EventFunc
}

// EventQueue holds one-shot timed events for the script tick loop. It is
// not safe for concurrent use; the engine drives it from one goroutine.
type EventQueue struct {
	events []timedEvent
}

// NewEventQueue returns an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// ScheduleAt registers fn to run at the next Think whose now is past at.
func (q *EventQueue) ScheduleAt(at time.Time, fn EventFunc) {
	q.events = append(q.events, timedEvent{executeAt: at, fn: fn})
}

// ScheduleAfter registers fn to run d after now.
func (q *EventQueue) ScheduleAfter(now time.Time, d time.Duration, fn EventFunc) {
	q.ScheduleAt(now.Add(d), fn)
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Think runs every event whose time has passed and drops it from the
// queue; events that are not yet due keep their order. Event errors are
// logged, not propagated - one failing script callback must not stop the
// loop.
func (q *EventQueue) Think(ctx context.Context, now time.Time) {
	pending := q.events
	q.events = nil
	var remaining []timedEvent
	for _, evt := range pending {
		if evt.executeAt.Before(now) {
			if err := evt.fn(ctx); err != nil {
				Logger().Warn("timed event failed", zap.Error(err))
			}
			continue
		}
		remaining = append(remaining, evt)
	}
	// Events scheduled by the callbacks above landed in q.events; keep
	// them after the ones that were not yet due.
	q.events = append(remaining, q.events...)
}
