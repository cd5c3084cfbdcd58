// Package events defines the wire messages fanned out to observers.
package events

import (
	"encoding/json"
	"time"

	"github.com/citypulse/trafficd/internal/model"
)

// Event types.
const (
	TypeTrafficUpdate    = "traffic_update"
	TypeVehicleCreated   = "emergency_vehicle_created"
	TypePriorityOverride = "priority_override"
	TypeIncidentReported = "incident_reported"
	TypeIncidentResolved = "incident_resolved"
)

// Event pairs a routing type with the full wire payload. The payload carries
// its own "type" field, so marshaling the payload alone produces the
// complete message.
type Event struct {
	Type    string
	Payload interface{}
}

// Marshal renders the wire message.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e.Payload)
}

// Sink receives every published event. Implementations must not block.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish calls f.
func (f SinkFunc) Publish(e Event) { f(e) }

// TrafficUpdate is the per-tick combined snapshot.
type TrafficUpdate struct {
	Type              string                   `json:"type"`
	Timestamp         time.Time                `json:"timestamp"`
	Intersections     []model.Intersection     `json:"intersections"`
	EmergencyVehicles []model.EmergencyVehicle `json:"emergency_vehicles"`
}

// EntityEvent wraps a single mutated entity.
type EntityEvent struct {
	Type           string      `json:"type"`
	IntersectionID string      `json:"intersection_id,omitempty"`
	Data           interface{} `json:"data"`
}

// NewTrafficUpdate builds the snapshot event. Slices are normalized to be
// non-nil so the wire message always carries arrays.
func NewTrafficUpdate(ts time.Time, intersections []model.Intersection, vehicles []model.EmergencyVehicle) Event {
	if intersections == nil {
		intersections = []model.Intersection{}
	}
	if vehicles == nil {
		vehicles = []model.EmergencyVehicle{}
	}
	return Event{
		Type: TypeTrafficUpdate,
		Payload: TrafficUpdate{
			Type:              TypeTrafficUpdate,
			Timestamp:         ts,
			Intersections:     intersections,
			EmergencyVehicles: vehicles,
		},
	}
}

// NewVehicleCreated announces a freshly registered emergency vehicle.
func NewVehicleCreated(v model.EmergencyVehicle) Event {
	return Event{
		Type:    TypeVehicleCreated,
		Payload: EntityEvent{Type: TypeVehicleCreated, Data: v},
	}
}

// NewPriorityOverride announces a manual override on an intersection.
func NewPriorityOverride(i model.Intersection) Event {
	return Event{
		Type: TypePriorityOverride,
		Payload: EntityEvent{
			Type:           TypePriorityOverride,
			IntersectionID: i.ID,
			Data:           i,
		},
	}
}

// NewIncidentReported announces a new traffic incident.
func NewIncidentReported(inc model.TrafficIncident) Event {
	return Event{
		Type:    TypeIncidentReported,
		Payload: EntityEvent{Type: TypeIncidentReported, Data: inc},
	}
}

// NewIncidentResolved announces an incident resolution.
func NewIncidentResolved(inc model.TrafficIncident) Event {
	return Event{
		Type:    TypeIncidentResolved,
		Payload: EntityEvent{Type: TypeIncidentResolved, Data: inc},
	}
}
