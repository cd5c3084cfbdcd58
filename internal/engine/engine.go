// Package engine implements the traffic-control core: the light state
// machine, the emergency-priority engine, and the periodic simulation loop
// driving both.
package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citypulse/trafficd/internal/events"
	"github.com/citypulse/trafficd/internal/model"
)

// Engine owns the authoritative in-memory tables of intersections and
// emergency vehicles. One mutex serializes every mutation entry point, so
// the tick driver and externally triggered overrides never interleave
// partial writes to a single intersection's lights.
type Engine struct {
	mu sync.RWMutex

	intersections     map[string]*model.Intersection
	intersectionOrder []string
	vehicles          map[string]*model.EmergencyVehicle
	vehicleOrder      []string
	incidents         map[string]*model.TrafficIncident
	incidentOrder     []string

	sinks []events.Sink
	now   func() time.Time
}

// New creates an empty engine. Observer sinks receive every event the
// engine emits; they must not block.
func New(sinks ...events.Sink) *Engine {
	return &Engine{
		intersections: make(map[string]*model.Intersection),
		vehicles:      make(map[string]*model.EmergencyVehicle),
		incidents:     make(map[string]*model.TrafficIncident),
		sinks:         sinks,
		now:           time.Now,
	}
}

// AddSink registers an additional event sink. Not safe to call once the
// simulation loop is running.
func (e *Engine) AddSink(s events.Sink) {
	e.sinks = append(e.sinks, s)
}

func (e *Engine) publish(evt events.Event) {
	for _, s := range e.sinks {
		s.Publish(evt)
	}
}

// LoadNetwork replaces the intersection and vehicle tables. Used for boot
// seeding and snapshot restore. Invariants from the data model are
// enforced: four lights per intersection, one per distinct direction.
func (e *Engine) LoadNetwork(intersections []model.Intersection, vehicles []model.EmergencyVehicle) error {
	for i := range intersections {
		if err := validateIntersection(&intersections[i]); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.intersections = make(map[string]*model.Intersection, len(intersections))
	e.intersectionOrder = e.intersectionOrder[:0]
	for i := range intersections {
		in := intersections[i].Clone()
		e.intersections[in.ID] = &in
		e.intersectionOrder = append(e.intersectionOrder, in.ID)
	}

	e.vehicles = make(map[string]*model.EmergencyVehicle, len(vehicles))
	e.vehicleOrder = e.vehicleOrder[:0]
	for i := range vehicles {
		v := vehicles[i].Clone()
		e.vehicles[v.ID] = &v
		e.vehicleOrder = append(e.vehicleOrder, v.ID)
	}

	return nil
}

func validateIntersection(in *model.Intersection) error {
	if in.ID == "" {
		return fmt.Errorf("%w: intersection without id", ErrValidation)
	}
	if len(in.TrafficLights) != 4 {
		return fmt.Errorf("%w: intersection %s has %d lights, want 4", ErrValidation, in.ID, len(in.TrafficLights))
	}
	seen := make(map[string]bool, 4)
	for _, l := range in.TrafficLights {
		switch l.Direction {
		case model.DirectionNorth, model.DirectionSouth, model.DirectionEast, model.DirectionWest:
		default:
			return fmt.Errorf("%w: intersection %s has unknown direction %q", ErrValidation, in.ID, l.Direction)
		}
		if seen[l.Direction] {
			return fmt.Errorf("%w: intersection %s has duplicate direction %q", ErrValidation, in.ID, l.Direction)
		}
		seen[l.Direction] = true
	}
	return nil
}

// Intersections returns copies of all intersections in network order.
func (e *Engine) Intersections() []model.Intersection {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Intersection, 0, len(e.intersectionOrder))
	for _, id := range e.intersectionOrder {
		out = append(out, e.intersections[id].Clone())
	}
	return out
}

// Intersection returns a copy of one intersection.
func (e *Engine) Intersection(id string) (model.Intersection, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	in, ok := e.intersections[id]
	if !ok {
		return model.Intersection{}, ErrIntersectionNotFound
	}
	return in.Clone(), nil
}

// ActiveVehicles returns copies of all active emergency vehicles in
// registration order.
func (e *Engine) ActiveVehicles() []model.EmergencyVehicle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activeVehiclesLocked()
}

func (e *Engine) activeVehiclesLocked() []model.EmergencyVehicle {
	out := make([]model.EmergencyVehicle, 0, len(e.vehicleOrder))
	for _, id := range e.vehicleOrder {
		if v := e.vehicles[id]; v.Active {
			out = append(out, v.Clone())
		}
	}
	return out
}

// RegisterVehicle adds a new emergency vehicle dispatch. A missing ID is
// replaced with a generated UUID; a duplicate ID is rejected. The active
// flag is forced on regardless of the payload.
func (e *Engine) RegisterVehicle(v model.EmergencyVehicle) (model.EmergencyVehicle, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.Active = true

	e.mu.Lock()
	if _, exists := e.vehicles[v.ID]; exists {
		e.mu.Unlock()
		return model.EmergencyVehicle{}, fmt.Errorf("%w: vehicle id %s already registered", ErrValidation, v.ID)
	}
	stored := v.Clone()
	e.vehicles[stored.ID] = &stored
	e.vehicleOrder = append(e.vehicleOrder, stored.ID)
	out := stored.Clone()
	e.mu.Unlock()

	e.publish(events.NewVehicleCreated(out))
	return out, nil
}

// UpdateVehiclePosition applies an external telemetry fix to a registered
// vehicle. The simulation loop keeps moving the vehicle from the new
// position on the next tick.
func (e *Engine) UpdateVehiclePosition(id string, lat, lon, speed float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.vehicles[id]
	if !ok {
		return ErrVehicleNotFound
	}
	v.Latitude = lat
	v.Longitude = lon
	if speed > 0 {
		v.Speed = speed
	}
	return nil
}

// PriorityOverride applies a manual emergency override: the referenced
// vehicle is granted a green corridor through the referenced intersection.
func (e *Engine) PriorityOverride(req model.PriorityRequest) (model.Intersection, error) {
	e.mu.Lock()
	in, ok := e.intersections[req.IntersectionID]
	if !ok {
		e.mu.Unlock()
		return model.Intersection{}, ErrIntersectionNotFound
	}
	v, ok := e.vehicles[req.VehicleID]
	if !ok {
		e.mu.Unlock()
		return model.Intersection{}, ErrVehicleNotFound
	}

	e.activateEmergencyMode(in, v)
	in.LastUpdated = e.now()
	out := in.Clone()
	e.mu.Unlock()

	e.publish(events.NewPriorityOverride(out))
	return out, nil
}

// Status reports aggregate network health.
type Status struct {
	TotalIntersections      int     `json:"total_intersections"`
	EmergencyVehiclesActive int     `json:"emergency_vehicles_active"`
	PriorityIntersections   int     `json:"priority_intersections"`
	AverageFlowRate         float64 `json:"average_flow_rate"`
	SystemStatus            string  `json:"system_status"`
}

// Status returns the aggregate network status. Average flow rate is rounded
// to two decimals.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := Status{
		TotalIntersections: len(e.intersections),
		SystemStatus:       "operational",
	}
	var flowSum float64
	for _, in := range e.intersections {
		flowSum += in.TrafficFlowRate
		if in.EmergencyPriority {
			st.PriorityIntersections++
		}
	}
	for _, v := range e.vehicles {
		if v.Active {
			st.EmergencyVehiclesActive++
		}
	}
	if st.TotalIntersections > 0 {
		st.AverageFlowRate = math.Round(flowSum/float64(st.TotalIntersections)*100) / 100
	}
	return st
}

// ReportIncident records a new traffic incident and announces it.
func (e *Engine) ReportIncident(inc model.TrafficIncident) (model.TrafficIncident, error) {
	if inc.Severity < 1 || inc.Severity > 5 {
		return model.TrafficIncident{}, fmt.Errorf("%w: incident severity %d outside 1..5", ErrValidation, inc.Severity)
	}
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	inc.CreatedAt = e.now()
	inc.ResolvedAt = nil

	e.mu.Lock()
	if _, exists := e.incidents[inc.ID]; exists {
		e.mu.Unlock()
		return model.TrafficIncident{}, fmt.Errorf("%w: incident id %s already reported", ErrValidation, inc.ID)
	}
	stored := inc.Clone()
	e.incidents[stored.ID] = &stored
	e.incidentOrder = append(e.incidentOrder, stored.ID)
	out := stored.Clone()
	e.mu.Unlock()

	e.publish(events.NewIncidentReported(out))
	return out, nil
}

// ResolveIncident stamps an incident as resolved. Resolving twice keeps the
// original resolution time.
func (e *Engine) ResolveIncident(id string) (model.TrafficIncident, error) {
	e.mu.Lock()
	inc, ok := e.incidents[id]
	if !ok {
		e.mu.Unlock()
		return model.TrafficIncident{}, ErrIncidentNotFound
	}
	already := inc.ResolvedAt != nil
	if !already {
		ts := e.now()
		inc.ResolvedAt = &ts
	}
	out := inc.Clone()
	e.mu.Unlock()

	if !already {
		e.publish(events.NewIncidentResolved(out))
	}
	return out, nil
}

// Incidents returns copies of all incidents in report order.
func (e *Engine) Incidents() []model.TrafficIncident {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.TrafficIncident, 0, len(e.incidentOrder))
	for _, id := range e.incidentOrder {
		out = append(out, e.incidents[id].Clone())
	}
	return out
}
