package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypulse/trafficd/internal/model"
)

func vehicleAt(lat, lon float64, vtype string, priority int) model.EmergencyVehicle {
	return model.EmergencyVehicle{
		ID:            "v-" + vtype,
		Type:          vtype,
		Latitude:      lat,
		Longitude:     lon,
		PriorityLevel: priority,
		Active:        true,
	}
}

func intersectionAt(lat, lon float64) model.Intersection {
	return model.Intersection{ID: "int_x", Latitude: lat, Longitude: lon}
}

func TestScore(t *testing.T) {
	in := intersectionAt(40.7589, -73.9851)

	t.Run("decreases with distance", func(t *testing.T) {
		near := vehicleAt(40.7610, -73.9851, model.VehicleAmbulance, 5)
		far := vehicleAt(40.7800, -73.9851, model.VehicleAmbulance, 5)
		assert.Greater(t, Score(near, in), Score(far, in))
	})

	t.Run("increases with priority level", func(t *testing.T) {
		low := vehicleAt(40.7610, -73.9851, model.VehicleAmbulance, 3)
		high := vehicleAt(40.7610, -73.9851, model.VehicleAmbulance, 9)
		assert.Greater(t, Score(high, in), Score(low, in))
	})

	t.Run("type multipliers rank fire_truck above ambulance above police", func(t *testing.T) {
		fire := vehicleAt(40.7610, -73.9851, model.VehicleFireTruck, 5)
		amb := vehicleAt(40.7610, -73.9851, model.VehicleAmbulance, 5)
		police := vehicleAt(40.7610, -73.9851, model.VehiclePolice, 5)
		assert.Greater(t, Score(fire, in), Score(amb, in))
		assert.Greater(t, Score(amb, in), Score(police, in))
	})

	t.Run("unknown type scores like ambulance", func(t *testing.T) {
		amb := vehicleAt(40.7610, -73.9851, model.VehicleAmbulance, 5)
		other := vehicleAt(40.7610, -73.9851, "tow_truck", 5)
		assert.Equal(t, Score(amb, in), Score(other, in))
	})

	t.Run("distance floor caps the score", func(t *testing.T) {
		onTop := vehicleAt(40.7589, -73.9851, model.VehicleAmbulance, 1)
		// 1/0.1 * 1.0 * 1 = 10: the floor, not a blowup.
		assert.InDelta(t, 10.0, Score(onTop, in), 1e-9)
	})
}

func TestApproachDirection(t *testing.T) {
	in := intersectionAt(40.0, -73.0)

	cases := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{"vehicle north of intersection approaches from south", 40.01, -73.001, model.DirectionSouth},
		{"vehicle south of intersection approaches from north", 39.99, -73.001, model.DirectionNorth},
		{"vehicle east of intersection approaches from west", 40.001, -72.99, model.DirectionWest},
		{"vehicle west of intersection approaches from east", 40.001, -73.01, model.DirectionEast},
		{"equal deltas fall to the longitude axis", 40.01, -72.99, model.DirectionWest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := vehicleAt(tc.lat, tc.lon, model.VehicleAmbulance, 5)
			assert.Equal(t, tc.want, ApproachDirection(v, in))
		})
	}
}

func TestNearbyVehicles(t *testing.T) {
	newEngineWithVehicles := func(vehicles ...model.EmergencyVehicle) *Engine {
		e := New()
		intersections, _ := SeedNetwork()
		require.NoError(t, e.LoadNetwork(intersections, vehicles))
		return e
	}

	t.Run("filters inactive vehicles and those outside the radius", func(t *testing.T) {
		inactive := vehicleAt(40.7589, -73.9851, model.VehicleAmbulance, 9)
		inactive.ID = "inactive"
		inactive.Active = false
		far := vehicleAt(41.5, -73.9851, model.VehicleAmbulance, 9)
		far.ID = "far"
		near := vehicleAt(40.7590, -73.9850, model.VehicleAmbulance, 9)
		near.ID = "near"

		e := newEngineWithVehicles(inactive, far, near)
		got, err := e.NearbyVehicles("int_001", AutoTriggerRadiusKm)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "near", got[0].ID)
	})

	t.Run("orders by descending score with stable ties", func(t *testing.T) {
		// Same spot, increasing priority: the last registered must rank first.
		weak := vehicleAt(40.7590, -73.9850, model.VehicleAmbulance, 2)
		weak.ID = "weak"
		strong := vehicleAt(40.7590, -73.9850, model.VehicleAmbulance, 9)
		strong.ID = "strong"
		twinA := vehicleAt(40.7591, -73.9850, model.VehiclePolice, 4)
		twinA.ID = "twin_a"
		twinB := vehicleAt(40.7591, -73.9850, model.VehiclePolice, 4)
		twinB.ID = "twin_b"

		e := newEngineWithVehicles(weak, strong, twinA, twinB)
		got, err := e.NearbyVehicles("int_001", AutoTriggerRadiusKm)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "strong", got[0].ID)
		// Identical scores keep registration order.
		assert.Equal(t, "twin_a", got[1].ID)
		assert.Equal(t, "twin_b", got[2].ID)
		assert.Equal(t, "weak", got[3].ID)
	})

	t.Run("unknown intersection", func(t *testing.T) {
		e := newEngineWithVehicles()
		_, err := e.NearbyVehicles("int_999", AutoTriggerRadiusKm)
		assert.ErrorIs(t, err, ErrIntersectionNotFound)
	})
}

func TestEmergencyMode(t *testing.T) {
	seedEngine := func(t *testing.T) *Engine {
		e := New()
		intersections, vehicles := SeedNetwork()
		require.NoError(t, e.LoadNetwork(intersections, vehicles))
		return e
	}

	t.Run("activate sets approach green and everything else red", func(t *testing.T) {
		e := seedEngine(t)
		in, err := e.PriorityOverride(model.PriorityRequest{
			VehicleID:      "emv_001",
			IntersectionID: "int_001",
			PriorityLevel:  9,
			Duration:       60,
		})
		require.NoError(t, err)

		assert.True(t, in.EmergencyPriority)
		// emv_001 sits south-east of int_001 with the latitude delta
		// dominating, so it approaches from the north.
		for _, l := range in.TrafficLights {
			assert.True(t, l.PriorityOverride)
			assert.Equal(t, 30, l.RemainingTime)
			if l.Direction == model.DirectionNorth {
				assert.Equal(t, model.SignalGreen, l.Status)
			} else {
				assert.Equal(t, model.SignalRed, l.Status)
			}
		}
	})

	t.Run("activate is idempotent", func(t *testing.T) {
		e := seedEngine(t)
		req := model.PriorityRequest{VehicleID: "emv_001", IntersectionID: "int_001"}
		first, err := e.PriorityOverride(req)
		require.NoError(t, err)
		second, err := e.PriorityOverride(req)
		require.NoError(t, err)
		assert.Equal(t, first.TrafficLights, second.TrafficLights)
		assert.Equal(t, first.EmergencyPriority, second.EmergencyPriority)
	})

	t.Run("deactivate clears flags but keeps colors", func(t *testing.T) {
		e := seedEngine(t)
		_, err := e.PriorityOverride(model.PriorityRequest{VehicleID: "emv_001", IntersectionID: "int_002"})
		require.NoError(t, err)

		e.mu.Lock()
		in := e.intersections["int_002"]
		e.deactivateEmergencyMode(in)
		got := in.Clone()
		e.mu.Unlock()

		assert.False(t, got.EmergencyPriority)
		for _, l := range got.TrafficLights {
			assert.False(t, l.PriorityOverride)
			assert.Equal(t, 30, l.RemainingTime, "countdown untouched by deactivation")
		}
	})
}
