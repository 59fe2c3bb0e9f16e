// Package alerts publishes high-noise node reports to an MQTT broker.
package alerts

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/noise"
	"github.com/RMahshie/sdrwatch/internal/observability"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

// DefaultTopic is used when no topic is configured
const DefaultTopic = "sdrwatch/alerts"

// Config holds broker settings
type Config struct {
	Broker         string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// Connect dials the broker. The client keeps reconnecting in the background,
// so a broker that is slow to come up does not fail startup.
func Connect(cfg Config) (mqtt.Client, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("sdrwatch-" + uuid.New().String()[:8])
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("MQTT connection lost")
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT reconnecting")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		log.Warn().Str("broker", cfg.Broker).Msg("MQTT broker not reachable yet, retrying in background")
		return client, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return client, nil
}

// Publisher is the subset of mqtt.Client used to send alerts
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
}

// Alert reports one node's bins above the high threshold
type Alert struct {
	Timestamp string                  `json:"timestamp"`
	Address   string                  `json:"address"`
	Latitude  float64                 `json:"latitude"`
	Longitude float64                 `json:"longitude"`
	Task      models.FrequencyTask    `json:"task"`
	High      []models.FrequencyNoise `json:"high"`
	Medium    int                     `json:"medium" doc:"Number of medium severity bins"`
}

// Build returns one alert per node with at least one high bin, classified
// against the snapshot's own bandwidth
func Build(snap models.Snapshot) []Alert {
	var out []Alert
	for _, node := range snap.Nodes {
		alert := Alert{
			Timestamp: node.Timestamp,
			Address:   node.Address,
			Latitude:  node.Latitude,
			Longitude: node.Longitude,
			Task:      snap.Task,
		}
		for _, s := range node.Samples {
			switch noise.Classify(s.NoiseDbm, snap.Task.BandwidthMhz) {
			case noise.High:
				alert.High = append(alert.High, s)
			case noise.Medium:
				alert.Medium++
			}
		}
		if len(alert.High) > 0 {
			out = append(out, alert)
		}
	}
	return out
}

// AlertPublisher sends alerts for every applied snapshot
type AlertPublisher struct {
	client  Publisher
	topic   string
	metrics *observability.Metrics

	pending sync.WaitGroup
}

// NewAlertPublisher creates a publisher on topic. metrics may be nil.
func NewAlertPublisher(client Publisher, topic string, metrics *observability.Metrics) *AlertPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &AlertPublisher{client: client, topic: topic, metrics: metrics}
}

// HandleSnapshot publishes the snapshot's alerts without waiting for the broker
func (a *AlertPublisher) HandleSnapshot(snap models.Snapshot) {
	alerts := Build(snap)
	if len(alerts) == 0 {
		return
	}
	if !a.client.IsConnected() {
		a.metrics.ObserveAlert(observability.ResultFailure)
		log.Warn().Int("alerts", len(alerts)).Msg("MQTT not connected, dropping alerts")
		return
	}

	for _, alert := range alerts {
		data, err := json.Marshal(alert)
		if err != nil {
			a.metrics.ObserveAlert(observability.ResultFailure)
			log.Error().Err(err).Str("address", alert.Address).Msg("Failed to encode alert")
			continue
		}

		token := a.client.Publish(a.topic, 0, false, data)
		address := alert.Address
		a.pending.Add(1)
		go func() {
			defer a.pending.Done()
			if token.Wait() && token.Error() != nil {
				a.metrics.ObserveAlert(observability.ResultFailure)
				log.Error().Err(token.Error()).Str("topic", a.topic).Str("address", address).Msg("Failed to publish alert")
				return
			}
			a.metrics.ObserveAlert(observability.ResultSuccess)
			log.Debug().Str("topic", a.topic).Str("address", address).Msg("Alert published")
		}()
	}
}

// Wait blocks until every publish issued so far has completed
func (a *AlertPublisher) Wait() {
	a.pending.Wait()
}
