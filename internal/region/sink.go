package region

import (
	"time"

	"github.com/udisondev/regionwatch/internal/model"
)

// Transition is the notification handed to a Sink after a region handler
// accepted an enter or leave.
type Transition struct {
	Kind       Kind
	Player     model.PlayerID
	RegionID   string
	RegionName string
	World      string
	Reason     string
	At         time.Time
}

// Sink receives transitions on the main thread. Notify must not block.
type Sink interface {
	Notify(tr Transition)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(tr Transition)

// Notify calls f(tr).
func (f SinkFunc) Notify(tr Transition) { f(tr) }

// MultiSink fans a transition out to every sink in order.
type MultiSink []Sink

// Notify implements Sink.
func (ms MultiSink) Notify(tr Transition) {
	for _, s := range ms {
		s.Notify(tr)
	}
}

type nopSink struct{}

func (nopSink) Notify(Transition) {}

func newTransition(ev Event, at time.Time) Transition {
	return Transition{
		Kind:       ev.Kind,
		Player:     ev.Player,
		RegionID:   ev.Region.id,
		RegionName: ev.Region.name,
		World:      ev.Region.world,
		Reason:     ev.Reason(),
		At:         at,
	}
}
