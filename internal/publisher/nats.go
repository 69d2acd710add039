package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cubny/ptfare"
	"github.com/cubny/ptfare/internal/logging"
)

// Conn is the part of a NATS connection the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
	Flush() error
}

type PublisherMetrics interface {
	ChargePublishedInc()
	ChargePublishErrInc()
	PublishObserve(d time.Duration)
	SetConnected(connected bool)
}

// NATSPublisher hands charges to the accounting bus, one message per charge
type NATSPublisher struct {
	nc      *nats.Conn
	conn    Conn
	subject string
	metrics PublisherMetrics
}

// ChargeMessage is the payload of a published charge
type ChargeMessage struct {
	RunID   string        `json:"runId"`
	Charge  ptfare.Charge `json:"charge"`
	Created time.Time     `json:"created"`
}

// NewNATSPublisher connects to url and publishes charges on subject, log and m may be nil
func NewNATSPublisher(url, subject string, m PublisherMetrics, log logging.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = logging.Noop()
	}
	ctx := context.Background()
	nc, err := nats.Connect(url,
		nats.Name("ptfare"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Warn(ctx, "nats disconnected", logging.Err(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			if m != nil {
				m.SetConnected(true)
			}
			log.Info(ctx, "nats reconnected", logging.String("url", nc.ConnectedUrlRedacted()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Info(ctx, "nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.SetConnected(true)
	}
	log.Info(ctx, "nats connected", logging.String("subject", subject))
	p := NewPublisher(nc, subject, m)
	p.nc = nc
	return p, nil
}

// NewPublisher wraps an existing connection
func NewPublisher(conn Conn, subject string, m PublisherMetrics) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject, metrics: m}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

// WriteCharge publishes one charge
func (p *NATSPublisher) WriteCharge(_ context.Context, runID string, c ptfare.Charge) error {
	b, err := json.Marshal(ChargeMessage{RunID: runID, Charge: c, Created: time.Now().UTC()})
	if err != nil {
		return err
	}
	start := time.Now()
	err = p.conn.Publish(p.subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.ChargePublishErrInc()
		} else {
			p.metrics.ChargePublishedInc()
		}
	}
	return err
}

// Flush waits until the server has processed every published charge
func (p *NATSPublisher) Flush() error {
	return p.conn.Flush()
}
