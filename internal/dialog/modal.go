// Package dialog holds the server-side state of the dashboard's configuration
// dialogs. Each Modal wraps a validation form and submits it to the
// collector once it validates.
package dialog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/observability"
	"github.com/RMahshie/sdrwatch/internal/validation"
)

// DefaultTimeout bounds a submission when no timeout is configured
const DefaultTimeout = 10 * time.Second

var (
	// ErrNotOpen is returned when acting on a closed dialog
	ErrNotOpen = errors.New("dialog: not open")
	// ErrUnknownField is returned when editing a field the form does not declare
	ErrUnknownField = errors.New("dialog: unknown field")
)

// SubmitFunc sends a valid form state to its destination
type SubmitFunc func(ctx context.Context, s validation.State) error

// CompleteFunc runs after a successful submission, even if the dialog was
// closed while the submission was in flight
type CompleteFunc func(ctx context.Context, s validation.State)

// View is the renderable state of a dialog
type View struct {
	Form        string            `json:"form" doc:"Dialog name"`
	Visible     bool              `json:"visible"`
	Status      validation.Status `json:"status" doc:"pristine, dirty, valid or invalid"`
	OKEnabled   bool              `json:"ok_enabled"`
	Fields      []string          `json:"fields" doc:"Field names in display order"`
	Values      map[string]string `json:"values"`
	Errors      []string          `json:"errors" doc:"Validation messages in field order"`
	SubmitError string            `json:"submit_error,omitempty" doc:"Why the last submission failed"`
}

// Result is the outcome of a Submit
type Result struct {
	View View `json:"view"`
	// Submitted is true when the destination accepted the form
	Submitted bool `json:"submitted"`
}

// ModalConfig configures a Modal
type ModalConfig struct {
	Form       *validation.Form
	Submit     SubmitFunc
	OnComplete CompleteFunc
	Timeout    time.Duration
	Metrics    *observability.Metrics
}

// Modal is one dialog's visibility and form state. All transitions are
// applied under its lock; the submission itself runs outside it.
type Modal struct {
	form       *validation.Form
	submit     SubmitFunc
	onComplete CompleteFunc
	timeout    time.Duration
	metrics    *observability.Metrics

	mu        sync.Mutex
	visible   bool
	state     validation.State
	submitErr string
}

// NewModal creates a closed modal
func NewModal(cfg ModalConfig) *Modal {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Modal{
		form:       cfg.Form,
		submit:     cfg.Submit,
		onComplete: cfg.OnComplete,
		timeout:    cfg.Timeout,
		metrics:    cfg.Metrics,
		state:      cfg.Form.Reduce(validation.State{}, validation.Open{}),
	}
}

// Name returns the form name
func (m *Modal) Name() string {
	return m.form.Name()
}

// Open shows the dialog with a fresh form seeded from seed
func (m *Modal) Open(seed map[string]string) View {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = true
	m.state = m.form.Reduce(validation.State{}, validation.Open{Seed: seed})
	m.submitErr = ""
	return m.viewLocked()
}

// Change replaces the raw input of one field
func (m *Modal) Change(field, value string) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.visible {
		return m.viewLocked(), ErrNotOpen
	}
	if !m.form.HasField(field) {
		return m.viewLocked(), ErrUnknownField
	}
	m.state = m.form.Reduce(m.state, validation.FieldChanged{Field: field, Value: value})
	m.submitErr = ""
	return m.viewLocked(), nil
}

// Close hides the dialog. In-flight submissions still complete.
func (m *Modal) Close() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = false
	m.submitErr = ""
	return m.viewLocked()
}

// View returns the current dialog state
func (m *Modal) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Submit validates the form and, when it is valid, sends it. The send is
// detached from ctx's cancellation and bounded by the modal's timeout.
func (m *Modal) Submit(ctx context.Context) (Result, error) {
	m.mu.Lock()
	if !m.visible {
		view := m.viewLocked()
		m.mu.Unlock()
		return Result{View: view}, ErrNotOpen
	}
	m.state = m.form.Reduce(m.state, validation.Submit{})
	submitted := m.state
	if submitted.Status() != validation.Valid {
		view := m.viewLocked()
		m.mu.Unlock()
		return Result{View: view}, nil
	}
	m.submitErr = ""
	m.mu.Unlock()

	id := uuid.New().String()
	logger := log.With().Str("form", m.Name()).Str("submission_id", id).Logger()
	logger.Info().Interface("values", submitted.Values()).Msg("Submitting dialog")

	detached := context.WithoutCancel(ctx)
	sendCtx, cancel := context.WithTimeout(detached, m.timeout)
	err := m.submit(sendCtx, submitted)
	cancel()

	if err != nil {
		m.metrics.ObserveSubmission(m.Name(), observability.ResultFailure)
		logger.Error().Err(err).Msg("Dialog submission failed")

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.visible {
			m.submitErr = err.Error()
		}
		return Result{View: m.viewLocked()}, nil
	}

	m.metrics.ObserveSubmission(m.Name(), observability.ResultSuccess)
	logger.Info().Msg("Dialog submission accepted")

	m.mu.Lock()
	m.visible = false
	m.submitErr = ""
	m.mu.Unlock()

	if m.onComplete != nil {
		doneCtx, cancel := context.WithTimeout(detached, m.timeout)
		m.onComplete(doneCtx, submitted)
		cancel()
	}
	return Result{View: m.View(), Submitted: true}, nil
}

func (m *Modal) viewLocked() View {
	errs := m.state.Errors()
	if errs == nil {
		errs = []string{}
	}
	return View{
		Form:        m.form.Name(),
		Visible:     m.visible,
		Status:      m.state.Status(),
		OKEnabled:   m.state.OKEnabled(),
		Fields:      m.form.FieldNames(),
		Values:      m.state.Values(),
		Errors:      errs,
		SubmitError: m.submitErr,
	}
}
