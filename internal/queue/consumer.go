package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer appends every BookingEvent from the queue to a log file, one line
// per event.
type Consumer struct {
	url   string
	queue string
	path  string
	log   logrus.FieldLogger

	mu sync.Mutex // serializes appends
}

func NewConsumer(url, queue, path string, log logrus.FieldLogger) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}
	if path == "" {
		path = filepath.Join("logs", "booking.log")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Consumer{url: url, queue: queue, path: path, log: log}
}

// Run connects, consumes and reconnects with backoff until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err == nil {
			backoff = time.Second
			err = c.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		c.log.WithError(err).WithField("retry_in", backoff).Warn("booking consumer disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.log.WithError(err).Error("handle booking event failed")
				// reject without requeue to avoid a poison loop
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and appends it to the booking log.
func (c *Consumer) Handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.TicketID == "" {
		return errors.New("event without type or ticket id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(c.path), err)
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single newline-terminated log line.
func FormatLine(ev BookingEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | ticket_id=%s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.TicketID)
	if ev.PreviousTicketID != "" {
		fmt.Fprintf(&b, " | previous_ticket_id=%s", ev.PreviousTicketID)
	}
	fmt.Fprintf(&b, " | screening_id=%s | movie=%q | hall=%q | starts_at=%s | customer=%q | total=%s | seats=[%s]\n",
		ev.ScreeningID, ev.MovieTitle, ev.Hall, ev.StartsAt.Format("2006-01-02 15:04"), ev.Customer,
		ev.TotalPrice.StringFixed(2), strings.Join(ev.Seats, ","))
	return b.String()
}
