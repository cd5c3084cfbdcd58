package engine

import (
	"sort"

	"github.com/citypulse/trafficd/internal/geo"
	"github.com/citypulse/trafficd/internal/model"
)

const (
	// AutoTriggerRadiusKm is the radius within which an active emergency
	// vehicle automatically claims an intersection.
	AutoTriggerRadiusKm = 2.0

	// minScoreDistanceKm floors the distance term so a vehicle sitting on
	// top of an intersection does not blow the score up toward infinity.
	minScoreDistanceKm = 0.1

	// overrideGreenSeconds is the extended countdown applied to every
	// light while an emergency override holds the intersection.
	overrideGreenSeconds = 30
)

func typeMultiplier(vehicleType string) float64 {
	switch vehicleType {
	case model.VehicleAmbulance:
		return 1.0
	case model.VehicleFireTruck:
		return 1.2
	case model.VehiclePolice:
		return 0.8
	default:
		return 1.0
	}
}

// Score ranks an emergency vehicle against an intersection: closer, higher
// priority and more urgent vehicle classes dominate.
func Score(v model.EmergencyVehicle, in model.Intersection) float64 {
	dist := geo.DistanceKm(
		geo.Coordinate{Latitude: v.Latitude, Longitude: v.Longitude},
		geo.Coordinate{Latitude: in.Latitude, Longitude: in.Longitude},
	)
	if dist < minScoreDistanceKm {
		dist = minScoreDistanceKm
	}
	return (1 / dist) * typeMultiplier(v.Type) * float64(v.PriorityLevel)
}

// ApproachDirection estimates which approach the vehicle arrives from using
// an axis-dominant comparison of the position deltas. It is a coarse
// heuristic, not a true bearing.
func ApproachDirection(v model.EmergencyVehicle, in model.Intersection) string {
	latDiff := v.Latitude - in.Latitude
	lonDiff := v.Longitude - in.Longitude

	if absFloat(latDiff) > absFloat(lonDiff) {
		if latDiff > 0 {
			return model.DirectionSouth
		}
		return model.DirectionNorth
	}
	if lonDiff > 0 {
		return model.DirectionWest
	}
	return model.DirectionEast
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// nearbyVehicles returns the active vehicles within radiusKm of the
// intersection, highest score first. Ties keep registration order. Caller
// holds the engine lock.
func (e *Engine) nearbyVehicles(in *model.Intersection, radiusKm float64) []*model.EmergencyVehicle {
	var nearby []*model.EmergencyVehicle
	center := geo.Coordinate{Latitude: in.Latitude, Longitude: in.Longitude}
	for _, id := range e.vehicleOrder {
		v := e.vehicles[id]
		if !v.Active {
			continue
		}
		d := geo.DistanceKm(center, geo.Coordinate{Latitude: v.Latitude, Longitude: v.Longitude})
		if d <= radiusKm {
			nearby = append(nearby, v)
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return Score(*nearby[i], *in) > Score(*nearby[j], *in)
	})
	return nearby
}

// NearbyVehicles returns copies of the active vehicles within radiusKm of
// the given intersection, highest score first.
func (e *Engine) NearbyVehicles(intersectionID string, radiusKm float64) ([]model.EmergencyVehicle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	in, ok := e.intersections[intersectionID]
	if !ok {
		return nil, ErrIntersectionNotFound
	}
	nearby := e.nearbyVehicles(in, radiusKm)
	out := make([]model.EmergencyVehicle, 0, len(nearby))
	for _, v := range nearby {
		out = append(out, v.Clone())
	}
	return out, nil
}

// activateEmergencyMode claims the intersection for the vehicle: the light
// facing the vehicle's approach goes green, everything else red, all under
// override with the extended countdown. Whatever phase the lights were in
// is overwritten; timing of adjacent intersections is not consulted (known
// limitation). Caller holds the engine lock.
func (e *Engine) activateEmergencyMode(in *model.Intersection, v *model.EmergencyVehicle) {
	in.EmergencyPriority = true

	approach := ApproachDirection(*v, *in)
	for i := range in.TrafficLights {
		light := &in.TrafficLights[i]
		if light.Direction == approach {
			light.Status = model.SignalGreen
		} else {
			light.Status = model.SignalRed
		}
		light.RemainingTime = overrideGreenSeconds
		light.PriorityOverride = true
	}
}

// deactivateEmergencyMode releases the intersection back to normal cycling.
// Colors and countdowns stay where the override left them. Caller holds the
// engine lock.
func (e *Engine) deactivateEmergencyMode(in *model.Intersection) {
	in.EmergencyPriority = false
	for i := range in.TrafficLights {
		in.TrafficLights[i].PriorityOverride = false
	}
}
