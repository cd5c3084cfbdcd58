package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/citypulse/trafficd/internal/events"
	"github.com/citypulse/trafficd/internal/model"
)

const (
	// arrivalEpsilon is the degree-space distance below which a vehicle
	// counts as arrived.
	arrivalEpsilon = 0.001

	// moveStep is the fixed degree-space distance a vehicle travels along
	// its destination vector each tick.
	moveStep = 0.0001
)

// Tick runs one full update pass: advance every light, re-evaluate
// emergency priority per intersection, move every active vehicle, then emit
// one combined snapshot. A panic mid-tick is returned as an error; partial
// updates stay applied (no cross-intersection atomicity).
func (e *Engine) Tick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick aborted: %v", r)
		}
	}()

	snapshot := e.advanceOnce()
	e.publish(snapshot)
	return nil
}

func (e *Engine) advanceOnce() events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	for _, id := range e.intersectionOrder {
		in := e.intersections[id]

		for i := range in.TrafficLights {
			advanceLight(&in.TrafficLights[i])
		}

		nearby := e.nearbyVehicles(in, AutoTriggerRadiusKm)
		if len(nearby) > 0 {
			e.activateEmergencyMode(in, nearby[0])
		} else {
			e.deactivateEmergencyMode(in)
		}

		in.LastUpdated = now
	}

	for _, id := range e.vehicleOrder {
		moveVehicle(e.vehicles[id])
	}

	snapIntersections := make([]model.Intersection, 0, len(e.intersectionOrder))
	for _, id := range e.intersectionOrder {
		snapIntersections = append(snapIntersections, e.intersections[id].Clone())
	}

	return events.NewTrafficUpdate(now, snapIntersections, e.activeVehiclesLocked())
}

func moveVehicle(v *model.EmergencyVehicle) {
	if !v.Active {
		return
	}

	dLat := v.DestinationLat - v.Latitude
	dLon := v.DestinationLon - v.Longitude
	dist := math.Sqrt(dLat*dLat + dLon*dLon)

	if dist > arrivalEpsilon {
		v.Latitude += dLat / dist * moveStep
		v.Longitude += dLon / dist * moveStep
		return
	}

	// Arrived: deactivate in place.
	v.Active = false
}

// Loop drives the engine on a fixed cadence. A failed tick is logged and
// the loop degrades to the backoff interval before resuming.
type Loop struct {
	engine   *Engine
	interval time.Duration
	backoff  time.Duration
	log      *logrus.Entry
}

// NewLoop creates the 1 s tick driver with a 5 s failure backoff.
func NewLoop(e *Engine, log *logrus.Logger) *Loop {
	return &Loop{
		engine:   e,
		interval: time.Second,
		backoff:  5 * time.Second,
		log:      log.WithField("component", "simulation"),
	}
}

// Run blocks until ctx is cancelled. The loop never terminates on tick
// failure.
func (l *Loop) Run(ctx context.Context) {
	delay := l.interval
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := l.engine.Tick(); err != nil {
			l.log.WithError(err).Error("simulation tick failed")
			delay = l.backoff
		} else {
			delay = l.interval
		}
		timer.Reset(delay)
	}
}
