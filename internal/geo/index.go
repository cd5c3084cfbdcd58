package geo

import (
	"sort"

	"github.com/dhconnelly/rtreego"
)

// IndexEntry is an intersection placed in the spatial index.
type IndexEntry struct {
	ID        string
	Latitude  float64
	Longitude float64
}

type indexedEntry struct {
	entry    IndexEntry
	envelope rtreego.Rect
}

func (e *indexedEntry) Bounds() rtreego.Rect {
	return e.envelope
}

// Index is an R-tree over intersection locations. The network is fixed at
// boot, so the index is built once and only read afterwards.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// NewIndex builds a spatial index from the given entries.
func NewIndex(entries []IndexEntry) *Index {
	tree := rtreego.NewTree(2, 25, 50)
	for _, entry := range entries {
		rect, err := rtreego.NewRect(rtreego.Point{entry.Latitude, entry.Longitude}, []float64{1e-9, 1e-9})
		if err != nil {
			continue
		}
		tree.Insert(&indexedEntry{entry: entry, envelope: rect})
	}
	return &Index{tree: tree, size: len(entries)}
}

// Nearby returns the IDs of intersections within radiusKm of the given
// point, ordered nearest first. The R-tree narrows the candidate set; the
// exact haversine distance decides membership.
func (x *Index) Nearby(point Coordinate, radiusKm float64) []string {
	if x.tree == nil || x.size == 0 {
		return nil
	}

	candidates := x.tree.NearestNeighbors(x.size, rtreego.Point{point.Latitude, point.Longitude})

	type scored struct {
		id   string
		dist float64
	}
	var within []scored
	for _, item := range candidates {
		e := item.(*indexedEntry)
		d := DistanceKm(point, Coordinate{Latitude: e.entry.Latitude, Longitude: e.entry.Longitude})
		if d <= radiusKm {
			within = append(within, scored{id: e.entry.ID, dist: d})
		}
	}
	sort.SliceStable(within, func(i, j int) bool { return within[i].dist < within[j].dist })

	ids := make([]string, len(within))
	for i, s := range within {
		ids[i] = s.id
	}
	return ids
}
