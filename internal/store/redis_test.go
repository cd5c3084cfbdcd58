package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypulse/trafficd/internal/engine"
	"github.com/citypulse/trafficd/internal/events"
)

func TestSnapshotCodec(t *testing.T) {
	t.Run("round-trips the seed network", func(t *testing.T) {
		intersections, vehicles := engine.SeedNetwork()
		snap := events.TrafficUpdate{
			Type:              events.TypeTrafficUpdate,
			Timestamp:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Intersections:     intersections,
			EmergencyVehicles: vehicles,
		}

		payload, err := encodeSnapshot(snap)
		require.NoError(t, err)

		got, err := decodeSnapshot(payload)
		require.NoError(t, err)
		assert.Equal(t, snap.Timestamp, got.Timestamp)
		require.Len(t, got.Intersections, 4)
		assert.Equal(t, intersections[0].TrafficLights, got.Intersections[0].TrafficLights)
		require.Len(t, got.EmergencyVehicles, 1)
		assert.Equal(t, "emv_001", got.EmergencyVehicles[0].ID)
	})

	t.Run("restored snapshot satisfies engine invariants", func(t *testing.T) {
		intersections, vehicles := engine.SeedNetwork()
		payload, err := encodeSnapshot(events.TrafficUpdate{
			Type:              events.TypeTrafficUpdate,
			Timestamp:         time.Now().UTC(),
			Intersections:     intersections,
			EmergencyVehicles: vehicles,
		})
		require.NoError(t, err)

		snap, err := decodeSnapshot(payload)
		require.NoError(t, err)

		e := engine.New()
		assert.NoError(t, e.LoadNetwork(snap.Intersections, snap.EmergencyVehicles))
		assert.Len(t, e.Intersections(), 4)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := decodeSnapshot([]byte("not json"))
		assert.Error(t, err)
	})
}
