package eventbus

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultBatchSize    = 100
)

// Forwarder polls the outbox table and forwards committed messages to the
// event bus, deleting each row after a successful publish. Delivery is
// at-least-once: a crash between publish and delete replays the message.
type Forwarder struct {
	db           *sql.DB
	publisher    message.Publisher
	topic        string
	pollInterval time.Duration
	batchSize    int
	logger       watermill.LoggerAdapter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewForwarder creates a new outbox forwarder.
func NewForwarder(
	db *sql.DB,
	publisher message.Publisher,
	logger watermill.LoggerAdapter,
) *Forwarder {
	return &Forwarder{
		db:           db,
		publisher:    publisher,
		topic:        LinkEventsTopic,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
		logger:       logger,
	}
}

// Start begins forwarding messages from the outbox.
func (f *Forwarder) Start(ctx context.Context) {
	f.ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.run()
	f.logger.Info("outbox forwarder started", nil)
}

// Stop stops the forwarder gracefully.
func (f *Forwarder) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
	f.logger.Info("outbox forwarder stopped", nil)
}

func (f *Forwarder) run() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.forwardBatch()
		}
	}
}

type outboxRow struct {
	id       int64
	uuid     string
	payload  []byte
	metadata string
}

func (f *Forwarder) forwardBatch() {
	rows, err := f.db.QueryContext(f.ctx,
		`SELECT id, uuid, payload, metadata FROM outbox_messages ORDER BY created_at ASC, id ASC LIMIT $1`,
		f.batchSize)
	if err != nil {
		f.logger.Error("failed to query outbox messages", err, nil)
		return
	}

	var batch []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.uuid, &row.payload, &row.metadata); err != nil {
			f.logger.Error("failed to scan outbox message", err, nil)
			rows.Close()
			return
		}
		batch = append(batch, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		f.logger.Error("failed to read outbox messages", err, nil)
		return
	}

	for _, row := range batch {
		if err := f.forwardMessage(row); err != nil {
			f.logger.Error("failed to forward message", err, watermill.LogFields{
				"uuid": row.uuid,
			})
			continue
		}

		// Delete the message after successful forwarding
		if _, err := f.db.ExecContext(f.ctx, `DELETE FROM outbox_messages WHERE id = $1`, row.id); err != nil {
			f.logger.Error("failed to delete outbox message", err, watermill.LogFields{
				"uuid": row.uuid,
			})
		}
	}
}

func (f *Forwarder) forwardMessage(row outboxRow) error {
	msg := message.NewMessage(row.uuid, row.payload)

	var metadata map[string]string
	if err := json.Unmarshal([]byte(row.metadata), &metadata); err != nil {
		return err
	}
	for k, v := range metadata {
		msg.Metadata.Set(k, v)
	}

	if err := f.publisher.Publish(f.topic, msg); err != nil {
		return err
	}

	f.logger.Debug("forwarded message", watermill.LogFields{
		"uuid":       row.uuid,
		"event_name": metadata["event_name"],
	})

	return nil
}
