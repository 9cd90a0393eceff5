package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/resilience"
)

const DefaultSubject = "guides.changed"

// EventBus publishes and consumes guide change events on a NATS subject.
type EventBus struct {
	conn     *nats.Conn
	subject  string
	group    string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	// QueueGroup load-balances events across watchers; empty means every
	// watcher sees every event.
	QueueGroup         string
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(url, subject string) (*EventBus, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*EventBus, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("hubctl"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &EventBus{
		conn:     conn,
		subject:  subject,
		group:    options.QueueGroup,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (b *EventBus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func (b *EventBus) PublishGuideChanged(ctx context.Context, event domain.GuideEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode guide event: %w", err)
	}
	call := func(_ context.Context) error {
		if err := b.conn.Publish(b.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if b.executor != nil {
		err = b.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeGuideChanged blocks until ctx is done, handing each decoded event
// to handler. Malformed payloads and handler errors are logged and skipped.
func (b *EventBus) SubscribeGuideChanged(ctx context.Context, handler func(context.Context, domain.GuideEvent) error) error {
	onMessage := func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		event, err := DecodeEvent(msg.Data)
		if err != nil {
			b.logger.Warn("guide_event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event); err != nil {
			b.logger.Error("guide_event_handler_failed", "guide_id", event.GuideID, "type", string(event.Type), "error", err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if b.group != "" {
		sub, err = b.conn.QueueSubscribe(b.subject, b.group, onMessage)
	} else {
		sub, err = b.conn.Subscribe(b.subject, onMessage)
	}
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func DecodeEvent(data []byte) (domain.GuideEvent, error) {
	var event domain.GuideEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.GuideEvent{}, fmt.Errorf("decode guide event: %w", err)
	}
	if event.Type == "" {
		return domain.GuideEvent{}, domain.WrapError(domain.ErrInvalidInput, "decode guide event", errors.New("missing type"))
	}
	return event, nil
}
