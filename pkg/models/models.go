package models

import (
	"time"
)

// NodeReading is the latest sweep reported by one sensor node
type NodeReading struct {
	Address   string           `json:"address" doc:"Node address, also its network endpoint"`
	Latitude  float64          `json:"latitude" doc:"Node latitude in degrees"`
	Longitude float64          `json:"longitude" doc:"Node longitude in degrees"`
	Timestamp string           `json:"timestamp" doc:"Collection time as reported by the collector"`
	Samples   []FrequencyNoise `json:"samples" doc:"Measured bins in the order received"`
}

// Snapshot is the complete view of collector state at a point in time.
// Snapshots are shared between subscribers and must be treated as read-only.
type Snapshot struct {
	Task      FrequencyTask `json:"task"`
	Nodes     []NodeReading `json:"nodes"`
	FetchedAt time.Time     `json:"fetched_at" doc:"When the snapshot was applied"`
}

// Addresses returns the node addresses in snapshot order
func (s Snapshot) Addresses() []string {
	addrs := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		addrs = append(addrs, n.Address)
	}
	return addrs
}

// NodeRegistration is a node to be added to the collector
type NodeRegistration struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
