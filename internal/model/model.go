// Package model holds the domain types for the traffic-control network.
package model

import "time"

// Compass directions for intersection approaches. Every intersection carries
// exactly one light per direction.
const (
	DirectionNorth = "north"
	DirectionSouth = "south"
	DirectionEast  = "east"
	DirectionWest  = "west"
)

// Signal colors.
const (
	SignalGreen  = "green"
	SignalYellow = "yellow"
	SignalRed    = "red"
)

// Emergency vehicle categories. Unknown categories are accepted and scored
// with a neutral multiplier.
const (
	VehicleAmbulance = "ambulance"
	VehicleFireTruck = "fire_truck"
	VehiclePolice    = "police"
)

// TrafficLight is one directional signal head at an intersection. While
// PriorityOverride is set, the normal cycle is suspended and the priority
// engine owns Status and RemainingTime.
type TrafficLight struct {
	ID               string `json:"id"`
	IntersectionID   string `json:"intersection_id"`
	Direction        string `json:"direction"`
	Status           string `json:"status"`
	RemainingTime    int    `json:"remaining_time"`
	PriorityOverride bool   `json:"priority_override"`
}

// Intersection is a fixed signalized point in the network. It owns its four
// lights exclusively; lights are never shared across intersections.
type Intersection struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Latitude          float64        `json:"latitude"`
	Longitude         float64        `json:"longitude"`
	TrafficLights     []TrafficLight `json:"traffic_lights"`
	EmergencyPriority bool           `json:"emergency_priority"`
	TrafficFlowRate   float64        `json:"traffic_flow_rate"`
	LastUpdated       time.Time      `json:"last_updated"`
}

// Clone returns a deep copy safe to hand to readers outside the engine lock.
func (i *Intersection) Clone() Intersection {
	out := *i
	out.TrafficLights = make([]TrafficLight, len(i.TrafficLights))
	copy(out.TrafficLights, i.TrafficLights)
	return out
}

// Light returns the light facing the given direction, or nil.
func (i *Intersection) Light(direction string) *TrafficLight {
	for idx := range i.TrafficLights {
		if i.TrafficLights[idx].Direction == direction {
			return &i.TrafficLights[idx]
		}
	}
	return nil
}

// EmergencyVehicle is a dispatched vehicle moving toward a destination.
// Position mutates every simulation tick; Active flips to false on arrival
// (the record is kept, not deleted).
type EmergencyVehicle struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	DestinationLat   float64    `json:"destination_lat"`
	DestinationLon   float64    `json:"destination_lon"`
	Speed            float64    `json:"speed"`
	Route            []string   `json:"route"`
	PriorityLevel    int        `json:"priority_level"`
	Active           bool       `json:"active"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
}

// Clone returns a deep copy of the vehicle.
func (v *EmergencyVehicle) Clone() EmergencyVehicle {
	out := *v
	out.Route = append([]string(nil), v.Route...)
	if v.EstimatedArrival != nil {
		eta := *v.EstimatedArrival
		out.EstimatedArrival = &eta
	}
	return out
}

// PriorityRequest is a transient manual-override ask from a traffic
// controller. It is acted on immediately and never persisted.
type PriorityRequest struct {
	VehicleID      string `json:"vehicle_id"`
	IntersectionID string `json:"intersection_id"`
	PriorityLevel  int    `json:"priority_level"`
	Duration       int    `json:"duration"`
}

// TrafficIncident is a reported disruption on the network, optionally linked
// to the emergency vehicles responding to it.
type TrafficIncident struct {
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	Severity          int        `json:"severity"`
	Description       string     `json:"description"`
	EmergencyVehicles []string   `json:"emergency_vehicles"`
	CreatedAt         time.Time  `json:"created_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
}

// Clone returns a deep copy of the incident.
func (t *TrafficIncident) Clone() TrafficIncident {
	out := *t
	out.EmergencyVehicles = append([]string(nil), t.EmergencyVehicles...)
	if t.ResolvedAt != nil {
		ts := *t.ResolvedAt
		out.ResolvedAt = &ts
	}
	return out
}
