package engine

import (
	"time"

	"github.com/citypulse/trafficd/internal/model"
)

// SeedNetwork returns the sample four-intersection grid and one dispatched
// ambulance used to bootstrap a fresh engine.
func SeedNetwork() ([]model.Intersection, []model.EmergencyVehicle) {
	now := time.Now().UTC()

	intersections := []model.Intersection{
		{
			ID:        "int_001",
			Name:      "Main St & 1st Ave",
			Latitude:  40.7589,
			Longitude: -73.9851,
			TrafficLights: []model.TrafficLight{
				{ID: "tl_001_n", IntersectionID: "int_001", Direction: model.DirectionNorth, Status: model.SignalGreen, RemainingTime: 25},
				{ID: "tl_001_s", IntersectionID: "int_001", Direction: model.DirectionSouth, Status: model.SignalGreen, RemainingTime: 25},
				{ID: "tl_001_e", IntersectionID: "int_001", Direction: model.DirectionEast, Status: model.SignalRed, RemainingTime: 25},
				{ID: "tl_001_w", IntersectionID: "int_001", Direction: model.DirectionWest, Status: model.SignalRed, RemainingTime: 25},
			},
			TrafficFlowRate: 0.8,
			LastUpdated:     now,
		},
		{
			ID:        "int_002",
			Name:      "Main St & 2nd Ave",
			Latitude:  40.7595,
			Longitude: -73.9845,
			TrafficLights: []model.TrafficLight{
				{ID: "tl_002_n", IntersectionID: "int_002", Direction: model.DirectionNorth, Status: model.SignalRed, RemainingTime: 15},
				{ID: "tl_002_s", IntersectionID: "int_002", Direction: model.DirectionSouth, Status: model.SignalRed, RemainingTime: 15},
				{ID: "tl_002_e", IntersectionID: "int_002", Direction: model.DirectionEast, Status: model.SignalGreen, RemainingTime: 15},
				{ID: "tl_002_w", IntersectionID: "int_002", Direction: model.DirectionWest, Status: model.SignalGreen, RemainingTime: 15},
			},
			TrafficFlowRate: 0.6,
			LastUpdated:     now,
		},
		{
			ID:        "int_003",
			Name:      "Broadway & 1st Ave",
			Latitude:  40.7583,
			Longitude: -73.9857,
			TrafficLights: []model.TrafficLight{
				{ID: "tl_003_n", IntersectionID: "int_003", Direction: model.DirectionNorth, Status: model.SignalYellow, RemainingTime: 3},
				{ID: "tl_003_s", IntersectionID: "int_003", Direction: model.DirectionSouth, Status: model.SignalYellow, RemainingTime: 3},
				{ID: "tl_003_e", IntersectionID: "int_003", Direction: model.DirectionEast, Status: model.SignalRed, RemainingTime: 28},
				{ID: "tl_003_w", IntersectionID: "int_003", Direction: model.DirectionWest, Status: model.SignalRed, RemainingTime: 28},
			},
			TrafficFlowRate: 0.9,
			LastUpdated:     now,
		},
		{
			ID:        "int_004",
			Name:      "Broadway & 2nd Ave",
			Latitude:  40.7589,
			Longitude: -73.9863,
			TrafficLights: []model.TrafficLight{
				{ID: "tl_004_n", IntersectionID: "int_004", Direction: model.DirectionNorth, Status: model.SignalGreen, RemainingTime: 20},
				{ID: "tl_004_s", IntersectionID: "int_004", Direction: model.DirectionSouth, Status: model.SignalGreen, RemainingTime: 20},
				{ID: "tl_004_e", IntersectionID: "int_004", Direction: model.DirectionEast, Status: model.SignalRed, RemainingTime: 20},
				{ID: "tl_004_w", IntersectionID: "int_004", Direction: model.DirectionWest, Status: model.SignalRed, RemainingTime: 20},
			},
			TrafficFlowRate: 0.7,
			LastUpdated:     now,
		},
	}

	eta := now.Add(5 * time.Minute)
	vehicles := []model.EmergencyVehicle{
		{
			ID:               "emv_001",
			Type:             model.VehicleAmbulance,
			Latitude:         40.7575,
			Longitude:        -73.9840,
			DestinationLat:   40.7600,
			DestinationLon:   -73.9870,
			Speed:            45.0,
			Route:            []string{"int_001", "int_002"},
			PriorityLevel:    9,
			Active:           true,
			EstimatedArrival: &eta,
		},
	}

	return intersections, vehicles
}
