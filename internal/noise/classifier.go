// Package noise maps measured noise power to severity tiers relative to the
// thermal-noise floor of the channel bandwidth.
package noise

import (
	"fmt"
	"math"
)

// Severity is the alert tier of a single measured bin
type Severity int

const (
	// Unclassified means no floor could be computed for the bin
	Unclassified Severity = iota
	Low
	Medium
	High
)

const (
	// thermalDbm is the Johnson-Nyquist reference used for the floor
	thermalDbm = -173.8

	mediumMarginDb = 10
	highMarginDb   = 20

	fallbackHighDbm   = -100
	fallbackMediumDbm = -110
)

func (s Severity) String() string {
	switch s {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unclassified"
	}
}

// MarshalText encodes the severity by name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name
func (s *Severity) UnmarshalText(text []byte) error {
	for _, candidate := range []Severity{Unclassified, Low, Medium, High} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("noise: unknown severity %q", text)
}

// Color is the display colour for the severity
func (s Severity) Color() string {
	switch s {
	case Low:
		return "green"
	case Medium:
		return "amber"
	case High:
		return "red"
	default:
		return "gray"
	}
}

// Floor returns the thermal-noise floor in dBm for a bandwidth in MHz,
// rounded to the nearest integer with halves toward +Inf. ok is false when the
// bandwidth is unusable.
func Floor(bandwidthMhz float64) (floor float64, ok bool) {
	if !available(bandwidthMhz) {
		return 0, false
	}
	return roundHalfUp(thermalDbm + 10*math.Log10(bandwidthMhz)), true
}

// roundHalfUp rounds -173.5 to -173, where math.Round would give -174
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// Classify returns the severity of noiseDbm for the given channel bandwidth.
// A zero, negative or non-finite bandwidth yields Unclassified.
func Classify(noiseDbm, bandwidthMhz float64) Severity {
	floor, ok := Floor(bandwidthMhz)
	if !ok {
		return Unclassified
	}
	switch {
	case noiseDbm > floor+highMarginDb:
		return High
	case noiseDbm > floor+mediumMarginDb:
		return Medium
	default:
		return Low
	}
}

// Fallback classifies against fixed absolute thresholds. It is meant for
// callers that must still render a bin when Classify is Unclassified.
func Fallback(noiseDbm float64) Severity {
	switch {
	case noiseDbm > fallbackHighDbm:
		return High
	case noiseDbm > fallbackMediumDbm:
		return Medium
	default:
		return Low
	}
}

func available(bandwidthMhz float64) bool {
	return bandwidthMhz > 0 && !math.IsInf(bandwidthMhz, 0) && !math.IsNaN(bandwidthMhz)
}
