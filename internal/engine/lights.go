package engine

import "github.com/citypulse/trafficd/internal/model"

// Normal-cycle countdowns, applied when a light enters the corresponding
// color: green → yellow(3) → red(25) → green(25) → …
const (
	yellowSeconds = 3
	redSeconds    = 25
	greenSeconds  = 25
)

// advanceLight moves one light one second forward through the fixed cycle.
// A light under priority override is frozen; its color and countdown belong
// to the priority engine until the override clears.
func advanceLight(l *model.TrafficLight) {
	if l.PriorityOverride {
		return
	}
	if l.RemainingTime > 0 {
		l.RemainingTime--
		return
	}

	switch l.Status {
	case model.SignalGreen:
		l.Status = model.SignalYellow
		l.RemainingTime = yellowSeconds
	case model.SignalYellow:
		l.Status = model.SignalRed
		l.RemainingTime = redSeconds
	case model.SignalRed:
		l.Status = model.SignalGreen
		l.RemainingTime = greenSeconds
	}
}
