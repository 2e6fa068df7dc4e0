package eventbus

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"shortlink/internal/domain/event"

	"github.com/ThreeDotsLabs/watermill/message"
)

// StoreInOutbox serializes events to Watermill messages and inserts them
// into the outbox table on the caller's transaction. The events become
// visible to the forwarder only after the transaction commits.
func StoreInOutbox(ctx context.Context, tx *sql.Tx, events []event.Event) error {
	for _, e := range events {
		msg, err := EventToMessage(e)
		if err != nil {
			return err
		}
		if err := storeMessage(ctx, tx, msg); err != nil {
			return err
		}
	}
	return nil
}

func storeMessage(ctx context.Context, tx *sql.Tx, msg *message.Message) error {
	metadata, err := json.Marshal(map[string]string(msg.Metadata))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_messages (uuid, payload, metadata, created_at) VALUES ($1, $2, $3, $4)`,
		msg.UUID, []byte(msg.Payload), string(metadata), time.Now().UTC().Unix(),
	)
	return err
}
