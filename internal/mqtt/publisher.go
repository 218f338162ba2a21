package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/session"
)

// Publisher forwards completed calibrations to the broker. It implements
// session.Sink.
type Publisher struct {
	client Client
	topic  string
	log    logger.Logger

	// connMu serialises connect-on-first-use across concurrent sessions.
	connMu sync.Mutex
}

// NewPublisher publishes on <baseTopic>/calibration through c.
func NewPublisher(c Client, baseTopic string) *Publisher {
	return &Publisher{
		client: c,
		topic:  joinTopic(baseTopic, CalibrationTopicSuffix),
		log:    GetLogger(),
	}
}

// Topic is the topic events are published on.
func (p *Publisher) Topic() string { return p.topic }

// Name implements session.Sink.
func (p *Publisher) Name() string { return "mqtt" }

// Deliver implements session.Sink. It connects on first use.
func (p *Publisher) Deliver(ctx context.Context, c session.Completion) error {
	if c.Result == nil {
		return errors.Newf("completion has no result").
			Component("mqtt").
			Category(errors.CategoryValidation).
			Build()
	}

	if err := p.ensureConnected(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(NewCalibrationMessage(c))
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("operation", "encode_payload").
			Build()
	}

	if err := p.client.Publish(ctx, p.topic, payload); err != nil {
		return err
	}
	p.log.Debug("published calibration event",
		logger.String("topic", p.topic),
		logger.String("session_id", c.SessionID),
		logger.String("result_id", c.Result.ID))
	return nil
}

func (p *Publisher) ensureConnected(ctx context.Context) error {
	if p.client.IsConnected() {
		return nil
	}
	p.connMu.Lock()
	defer p.connMu.Unlock()
	if p.client.IsConnected() {
		return nil
	}
	return p.client.Connect(ctx)
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	p.client.Disconnect()
}

var _ session.Sink = (*Publisher)(nil)

func joinTopic(base, suffix string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = DefaultTopic
	}
	return base + "/" + suffix
}
