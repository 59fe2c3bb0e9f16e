package validation

import (
	"strconv"

	"github.com/RMahshie/sdrwatch/pkg/models"
)

// Tasking form field names
const (
	FieldStartMhz     = "startMhz"
	FieldEndMhz       = "endMhz"
	FieldBandwidthMhz = "bandwidthMhz"
)

// TaskingForm is the frequency tasking form. Start and end are range checked
// independently; their ordering is left to the collector.
var TaskingForm = NewForm("tasking",
	Field{Name: FieldStartMhz, Label: "Start", Checks: []Check{Required(), Number(), Between(1, 2000)}},
	Field{Name: FieldEndMhz, Label: "End", Checks: []Check{Required(), Number(), Between(1, 2000)}},
	Field{Name: FieldBandwidthMhz, Label: "Bandwidth", Checks: []Check{Required(), Number(), Between(1, 20)}},
)

// ValidateTasking validates raw tasking inputs
func ValidateTasking(values map[string]string) State {
	return TaskingForm.Validate(values)
}

// TaskingSeed renders a task as raw form inputs
func TaskingSeed(task models.FrequencyTask) map[string]string {
	return map[string]string{
		FieldStartMhz:     strconv.FormatFloat(task.StartMhz, 'f', -1, 64),
		FieldEndMhz:       strconv.FormatFloat(task.EndMhz, 'f', -1, 64),
		FieldBandwidthMhz: strconv.FormatFloat(task.BandwidthMhz, 'f', -1, 64),
	}
}

// FrequencyTask converts a valid tasking form state into a task
func FrequencyTask(s State) (models.FrequencyTask, error) {
	if s.Status() != Valid {
		return models.FrequencyTask{}, ErrNotValid
	}
	start, _ := s.Float(FieldStartMhz)
	end, _ := s.Float(FieldEndMhz)
	bw, _ := s.Float(FieldBandwidthMhz)
	return models.FrequencyTask{StartMhz: start, EndMhz: end, BandwidthMhz: bw}, nil
}
