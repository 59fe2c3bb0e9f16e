package dialog

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/observability"
	"github.com/RMahshie/sdrwatch/internal/validation"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

// TaskSetter owns the task range shown on the dashboard
type TaskSetter interface {
	DisplayedTask() models.FrequencyTask
	SetDisplayedTask(task models.FrequencyTask)
}

// TaskingClient reconfigures the collector's scanned band
type TaskingClient interface {
	Tasking(ctx context.Context, task models.FrequencyTask) error
}

// TaskConfigurator is the frequency tasking dialog
type TaskConfigurator struct {
	*Modal
	client    TaskingClient
	display   TaskSetter
	refresher Refresher
}

// NewTaskConfigurator creates the tasking dialog
func NewTaskConfigurator(client TaskingClient, display TaskSetter, refresher Refresher, timeout time.Duration, metrics *observability.Metrics) *TaskConfigurator {
	t := &TaskConfigurator{
		client:    client,
		display:   display,
		refresher: refresher,
	}
	t.Modal = NewModal(ModalConfig{
		Form:       validation.TaskingForm,
		Submit:     t.task,
		OnComplete: t.tasked,
		Timeout:    timeout,
		Metrics:    metrics,
	})
	return t
}

// Show opens the dialog seeded with the displayed task
func (t *TaskConfigurator) Show() View {
	task := t.display.DisplayedTask()
	if task.IsZero() {
		return t.Open(nil)
	}
	return t.Open(validation.TaskingSeed(task))
}

func (t *TaskConfigurator) task(ctx context.Context, s validation.State) error {
	task, err := validation.FrequencyTask(s)
	if err != nil {
		return err
	}
	return t.client.Tasking(ctx, task)
}

func (t *TaskConfigurator) tasked(ctx context.Context, s validation.State) {
	task, err := validation.FrequencyTask(s)
	if err != nil {
		return
	}
	t.display.SetDisplayedTask(task)
	log.Info().Float64("start_mhz", task.StartMhz).Float64("end_mhz", task.EndMhz).
		Float64("bandwidth_mhz", task.BandwidthMhz).Msg("Displayed task updated")
	_, _ = t.refresher.Refresh(ctx)
}
