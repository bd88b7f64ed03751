package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher публикует JSON-сообщения во внешний брокер.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
	Close()
}

type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

func NewNATSPublisher(url, subjectPrefix string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("maintenance-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS: соединение потеряно", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS: соединение восстановлено", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к NATS: %w", err)
	}

	logger.Info("NATS: publisher инициализирован", zap.String("url", url), zap.String("prefix", subjectPrefix))
	return &NATSPublisher{conn: conn, prefix: subjectPrefix, logger: logger}, nil
}

func (p *NATSPublisher) subject(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать событие: %w", err)
	}

	full := p.subject(subject)
	if err := p.conn.Publish(full, data); err != nil {
		return fmt.Errorf("не удалось опубликовать событие в %s: %w", full, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("NATS flush: %w", err)
	}

	p.logger.Debug("NATS: событие опубликовано", zap.String("subject", full))
	return nil
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("NATS: ошибка при закрытии соединения", zap.Error(err))
	}
}
