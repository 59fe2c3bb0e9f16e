package models

import (
	"errors"
	"fmt"
)

// DataResponse is the collector's GET /data body. Top-level fields are
// pointers so a missing key can be told apart from a zero value.
type DataResponse struct {
	StartMhz     *float64  `json:"start_mhz"`
	EndMhz       *float64  `json:"end_mhz"`
	BandwidthMhz *float64  `json:"bandwidth_mhz"`
	SDRs         []SDRData `json:"sdrs"`
}

// SDRData is one node entry inside DataResponse
type SDRData struct {
	Address   string          `json:"address"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Datetime  string          `json:"datetime"`
	Data      []FrequencyData `json:"data"`
}

// FrequencyData is one bin as encoded by the collector
type FrequencyData struct {
	Frequency float64 `json:"frequency"`
	Noise     float64 `json:"noise"`
}

// AddNodeRequest is the POST /node/add body. The collector historically
// receives the latitude under the misspelled "lalitude" key.
type AddNodeRequest struct {
	Address   string   `json:"address"`
	Lalitude  *float64 `json:"lalitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude float64  `json:"longitude"`
}

// RemoveNodeRequest is the POST /node/remove body
type RemoveNodeRequest struct {
	Address string `json:"address"`
}

// TaskingRequest is the POST /tasking body
type TaskingRequest struct {
	StartMhz     float64 `json:"start_mhz"`
	EndMhz       float64 `json:"end_mhz"`
	BandwidthMhz float64 `json:"bandwidth_mhz"`
}

// ErrorBody is the error payload the collector attaches to failed requests
type ErrorBody struct {
	Error string `json:"error"`
}

// ToSnapshot maps the wire body onto the domain model, keeping bin order
func (d *DataResponse) ToSnapshot() (Snapshot, error) {
	var missing []string
	if d.StartMhz == nil {
		missing = append(missing, "start_mhz")
	}
	if d.EndMhz == nil {
		missing = append(missing, "end_mhz")
	}
	if d.BandwidthMhz == nil {
		missing = append(missing, "bandwidth_mhz")
	}
	if d.SDRs == nil {
		missing = append(missing, "sdrs")
	}
	if len(missing) > 0 {
		return Snapshot{}, fmt.Errorf("missing fields %v: %w", missing, errMissingFields)
	}

	nodes := make([]NodeReading, 0, len(d.SDRs))
	for _, sdr := range d.SDRs {
		samples := make([]FrequencyNoise, 0, len(sdr.Data))
		for _, fd := range sdr.Data {
			samples = append(samples, FrequencyNoise{FrequencyMhz: fd.Frequency, NoiseDbm: fd.Noise})
		}
		nodes = append(nodes, NodeReading{
			Address:   sdr.Address,
			Latitude:  sdr.Latitude,
			Longitude: sdr.Longitude,
			Timestamp: sdr.Datetime,
			Samples:   samples,
		})
	}

	return Snapshot{
		Task: FrequencyTask{
			StartMhz:     *d.StartMhz,
			EndMhz:       *d.EndMhz,
			BandwidthMhz: *d.BandwidthMhz,
		},
		Nodes: nodes,
	}, nil
}

var errMissingFields = errors.New("collector response is missing required fields")

// IsMissingFields reports whether err came from an incomplete DataResponse
func IsMissingFields(err error) bool {
	return errors.Is(err, errMissingFields)
}

// NewAddNodeRequest builds the add-node body, using the legacy latitude key when asked
func NewAddNodeRequest(node NodeRegistration, legacyLatitudeKey bool) AddNodeRequest {
	lat := node.Latitude
	req := AddNodeRequest{Address: node.Address, Longitude: node.Longitude}
	if legacyLatitudeKey {
		req.Lalitude = &lat
	} else {
		req.Latitude = &lat
	}
	return req
}

// NewTaskingRequest builds the tasking body from a task
func NewTaskingRequest(task FrequencyTask) TaskingRequest {
	return TaskingRequest{
		StartMhz:     task.StartMhz,
		EndMhz:       task.EndMhz,
		BandwidthMhz: task.BandwidthMhz,
	}
}
