package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/observability"
	"github.com/RMahshie/sdrwatch/internal/validation"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

// ErrNoAddress is returned when removing a node without an address
var ErrNoAddress = errors.New("dialog: node address is required")

// Refresher asks for an immediate poll
type Refresher interface {
	Refresh(ctx context.Context) (models.Snapshot, error)
}

// NodeClient registers and deregisters nodes with the collector
type NodeClient interface {
	AddNode(ctx context.Context, node models.NodeRegistration) error
	RemoveNode(ctx context.Context, address string) error
}

// Dialog is the operation set shared by every configuration dialog
type Dialog interface {
	Name() string
	Show() View
	Change(field, value string) (View, error)
	Submit(ctx context.Context) (Result, error)
	Close() View
	View() View
}

var (
	_ Dialog = (*NodeRegistry)(nil)
	_ Dialog = (*TaskConfigurator)(nil)
)

// NodeRegistry is the add-radio dialog plus node removal
type NodeRegistry struct {
	*Modal
	client    NodeClient
	refresher Refresher
	timeout   time.Duration
	metrics   *observability.Metrics
}

// NewNodeRegistry creates the add-radio dialog
func NewNodeRegistry(client NodeClient, refresher Refresher, timeout time.Duration, metrics *observability.Metrics) *NodeRegistry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &NodeRegistry{
		client:    client,
		refresher: refresher,
		timeout:   timeout,
		metrics:   metrics,
	}
	r.Modal = NewModal(ModalConfig{
		Form:       validation.NodeForm,
		Submit:     r.addNode,
		OnComplete: r.refresh,
		Timeout:    timeout,
		Metrics:    metrics,
	})
	return r
}

// Show opens the dialog with blank inputs
func (r *NodeRegistry) Show() View {
	return r.Open(nil)
}

func (r *NodeRegistry) addNode(ctx context.Context, s validation.State) error {
	node, err := validation.NodeRegistration(s)
	if err != nil {
		return err
	}
	return r.client.AddNode(ctx, node)
}

// refresh failures are logged and counted by the poller
func (r *NodeRegistry) refresh(ctx context.Context, _ validation.State) {
	_, _ = r.refresher.Refresh(ctx)
}

// Remove deregisters a node and refreshes on success
func (r *NodeRegistry) Remove(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrNoAddress
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.client.RemoveNode(ctx, address); err != nil {
		r.metrics.ObserveSubmission("remove", observability.ResultFailure)
		log.Error().Err(err).Str("address", address).Msg("Failed to remove node")
		return fmt.Errorf("failed to remove node: %w", err)
	}
	r.metrics.ObserveSubmission("remove", observability.ResultSuccess)
	log.Info().Str("address", address).Msg("Node removed")

	r.refresh(ctx, validation.State{})
	return nil
}
