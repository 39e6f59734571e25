package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTopic   = "checkout-outbox"
	DefaultGroupID = "cart-sync"

	retryDelay = time.Second
)

var errMissingUserID = errors.New("missing or invalid user_id")

// CartClearer drops a user's saved cart.
type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Poller clears a user's cart record once their checkout completes, so the
// next device to attach does not resurrect purchased items.
type Poller struct {
	carts  CartClearer
	reader *kafka.Reader
}

func NewPoller(carts CartClearer, cfg Config) *Poller {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader}
}

// Run consumes checkout events until ctx is done or the reader is closed.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.readAndClear(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		log.WithError(err).Warn("error closing reader")
	}
}

// readAndClear handles one message. Only read errors are returned; a bad
// message is logged and skipped.
func (p *Poller) readAndClear(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, io.EOF) {
			log.WithError(err).Warn("error reading message")
		}
		return err
	}

	entry := log.WithField("offset", m.Offset).WithField("partition", m.Partition)
	if err := handleCheckout(ctx, p.carts, m.Value); err != nil {
		entry.WithError(err).Warn("checkout event not applied")
		return nil
	}
	entry.Debug("cart cleared after checkout")
	return nil
}

func handleCheckout(ctx context.Context, carts CartClearer, value []byte) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(value, &payload); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}
	userID, ok := payload["user_id"].(string)
	if !ok || userID == "" {
		return errMissingUserID
	}

	if err := carts.Clear(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart %s: %w", userID, err)
	}
	return nil
}
