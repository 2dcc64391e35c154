// Package publisher pushes computed predictions onto NATS so downstream
// dashboards can subscribe instead of polling the HTTP API.
package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/sandovabarbora/golemio-public-transportation/internal/predictor"
)

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	metrics PublisherMetrics
}

// PublisherMetrics is the slice of the metrics collector the publisher
// needs; nil disables instrumentation.
type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, subject string, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("delay-predictor"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, subject: subject, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PredictionMessage is one stop's prediction batch on the wire.
type PredictionMessage struct {
	SessionID   string                 `json:"sessionId"`
	BaseStopID  string                 `json:"baseStopId"`
	Predictions []predictor.Prediction `json:"predictions"`
}

// PublishPredictions sends one message per stop under
// <subject>.<baseStopID>.
func (p *NATSPublisher) PublishPredictions(msg PredictionMessage) error {
	subject := fmt.Sprintf("%s.%s", p.subject, subjectToken(msg.BaseStopID))
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
