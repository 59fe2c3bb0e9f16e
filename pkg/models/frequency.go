package models

// FrequencyNoise represents a single measured frequency bin
type FrequencyNoise struct {
	FrequencyMhz float64 `json:"frequency_mhz" doc:"Bin centre frequency in MHz"`
	NoiseDbm     float64 `json:"noise_dbm" doc:"Measured noise power in dBm"`
}

// FrequencyTask is the scan window shared by every node
type FrequencyTask struct {
	StartMhz     float64 `json:"start_mhz" doc:"Start of the scanned band in MHz"`
	EndMhz       float64 `json:"end_mhz" doc:"End of the scanned band in MHz"`
	BandwidthMhz float64 `json:"bandwidth_mhz" doc:"Width of each frequency bin in MHz"`
}

// IsZero reports whether the task has not been received yet
func (t FrequencyTask) IsZero() bool {
	return t == FrequencyTask{}
}
