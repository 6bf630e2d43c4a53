package eventsink

import (
	"context"
	"errors"
	"time"

	"github.com/krobus00/trading-client/internal/constant"
	"github.com/krobus00/trading-client/internal/entity"
	"github.com/krobus00/trading-client/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// JetStreamSink publishes lifecycle events to the order_events stream for
// strategies and telemetry. Publish failures are logged and dropped: the
// tracker must never block or fail on sink trouble.
type JetStreamSink struct {
	js nats.JetStreamContext
}

func NewJetStreamSink(js nats.JetStreamContext) *JetStreamSink {
	return &JetStreamSink{js: js}
}

func (s *JetStreamSink) JetstreamEventInit(ctx context.Context) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.OrderEventsStreamName,
		Subjects:  []string{constant.OrderEventsStreamSubjectAll},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    24 * time.Hour,
		Replicas:  1,
	}

	stream, err := s.js.StreamInfo(constant.OrderEventsStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.OrderEventsStreamName)
		_, err = s.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.OrderEventsStreamName)
	_, err = s.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	return nil
}

func (s *JetStreamSink) OrderCreated(ctx context.Context, event entity.OrderCreatedEvent) {
	s.publish(constant.OrderEventsSubjectCreated, event)
}

func (s *JetStreamSink) OrderFilled(ctx context.Context, event entity.OrderFilledEvent) {
	s.publish(constant.OrderEventsSubjectFilled, event)
}

func (s *JetStreamSink) OrderCancelled(ctx context.Context, event entity.OrderCancelledEvent) {
	s.publish(constant.OrderEventsSubjectCancelled, event)
}

func (s *JetStreamSink) OrderFailure(ctx context.Context, event entity.OrderFailureEvent) {
	s.publish(constant.OrderEventsSubjectFailure, event)
}

func (s *JetStreamSink) OrderCompleted(ctx context.Context, event entity.OrderCompletedEvent) {
	s.publish(constant.OrderEventsSubjectCompleted, event)
}

func (s *JetStreamSink) publish(subject string, event any) {
	if err := util.PublishEvent(s.js, subject, event); err != nil {
		logrus.WithField("subject", subject).WithError(err).Error("failed to publish order event")
	}
}
