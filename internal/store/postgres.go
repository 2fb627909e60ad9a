package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

// Postgres is the production Store backed by PostgreSQL via pgx. The partial
// unique index on order_id enforces at most one live shipment per order, so
// concurrent duplicate creates resolve at the database without an
// application-level lock around the carrier call.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a pgx-backed store and verifies connectivity.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Schema holds the DDL for the shipment tables.
const Schema = `
CREATE TABLE IF NOT EXISTS shipments (
    id                   TEXT PRIMARY KEY,
    order_id             TEXT NOT NULL,
    carrier              TEXT NOT NULL,
    region               TEXT NOT NULL,
    tracking_number      TEXT NOT NULL DEFAULT '',
    tracking_placeholder BOOLEAN NOT NULL DEFAULT FALSE,
    status               TEXT NOT NULL,
    cost_amount          DOUBLE PRECISION NOT NULL DEFAULT 0,
    cost_currency        TEXT NOT NULL DEFAULT '',
    estimated_delivery   TIMESTAMPTZ,
    metadata             JSONB NOT NULL DEFAULT '{}',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS shipments_live_order
    ON shipments (order_id) WHERE status <> 'cancelled';

CREATE INDEX IF NOT EXISTS shipments_tracking
    ON shipments (tracking_number);

CREATE TABLE IF NOT EXISTS shipment_updates (
    shipment_id     TEXT NOT NULL,
    tracking_number TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    location        TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    carrier_time    TIMESTAMPTZ NOT NULL,
    metadata        JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS shipment_updates_shipment
    ON shipment_updates (shipment_id, carrier_time);

CREATE TABLE IF NOT EXISTS shipping_webhooks (
    id          TEXT PRIMARY KEY,
    carrier     TEXT NOT NULL,
    event       TEXT NOT NULL DEFAULT '',
    payload     BYTEA NOT NULL,
    signature   TEXT NOT NULL DEFAULT '',
    received_at TIMESTAMPTZ NOT NULL,
    processed   BOOLEAN NOT NULL DEFAULT FALSE,
    retry_count INTEGER NOT NULL DEFAULT 0
);
`

// EnsureSchema creates the tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, Schema)
	return err
}

func (p *Postgres) CreateShipment(ctx context.Context, rec *ShipmentRecord) error {
	now := time.Now().UTC()
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO shipments
            (id, order_id, carrier, region, tracking_number, tracking_placeholder,
             status, cost_amount, cost_currency, estimated_delivery, metadata,
             created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)`,
		rec.ID, rec.OrderID, rec.Carrier, string(rec.Region), rec.TrackingNumber,
		rec.TrackingPlaceholder, string(rec.Status), rec.Cost.Amount,
		rec.Cost.Currency, rec.EstimatedDelivery, toJSON(rec.Metadata), now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: order %s", carrier.ErrShipmentExists, rec.OrderID)
		}
		return err
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

func (p *Postgres) GetShipment(ctx context.Context, id string) (*ShipmentRecord, error) {
	return p.getShipment(ctx, `id = $1`, id)
}

func (p *Postgres) GetShipmentByOrder(ctx context.Context, orderID string) (*ShipmentRecord, error) {
	return p.getShipment(ctx, `order_id = $1 AND status <> 'cancelled'`, orderID)
}

func (p *Postgres) GetShipmentByTracking(ctx context.Context, trackingNumber string) (*ShipmentRecord, error) {
	return p.getShipment(ctx, `tracking_number = $1`, trackingNumber)
}

func (p *Postgres) getShipment(ctx context.Context, where string, arg any) (*ShipmentRecord, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT id, order_id, carrier, region, tracking_number, tracking_placeholder,
               status, cost_amount, cost_currency, estimated_delivery, metadata,
               created_at, updated_at
        FROM shipments WHERE `+where+` ORDER BY created_at DESC LIMIT 1`, arg)

	var rec ShipmentRecord
	var region, status string
	var metadata []byte
	var estimated sql.NullTime
	err := row.Scan(&rec.ID, &rec.OrderID, &rec.Carrier, &region, &rec.TrackingNumber,
		&rec.TrackingPlaceholder, &status, &rec.Cost.Amount, &rec.Cost.Currency,
		&estimated, &metadata, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", carrier.ErrShipmentNotFound, arg)
	}
	if err != nil {
		return nil, err
	}

	rec.Region = carrier.Region(region)
	rec.Status = carrier.ShipmentStatus(status)
	if estimated.Valid {
		t := estimated.Time
		rec.EstimatedDelivery = &t
	}
	rec.Metadata = fromJSON(metadata)
	return &rec, nil
}

func (p *Postgres) UpdateShipment(ctx context.Context, rec *ShipmentRecord) error {
	now := time.Now().UTC()
	res, err := p.db.ExecContext(ctx, `
        UPDATE shipments SET
            carrier = $2, tracking_number = $3, tracking_placeholder = $4,
            status = $5, cost_amount = $6, cost_currency = $7,
            estimated_delivery = $8, metadata = $9, updated_at = $10
        WHERE id = $1`,
		rec.ID, rec.Carrier, rec.TrackingNumber, rec.TrackingPlaceholder,
		string(rec.Status), rec.Cost.Amount, rec.Cost.Currency,
		rec.EstimatedDelivery, toJSON(rec.Metadata), now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", carrier.ErrShipmentNotFound, rec.ID)
	}
	rec.UpdatedAt = now
	return nil
}

func (p *Postgres) AppendUpdates(ctx context.Context, shipmentID string, updates []carrier.ShippingUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range updates {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO shipment_updates
                (shipment_id, tracking_number, status, location, description, carrier_time, metadata)
            VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			shipmentID, u.TrackingNumber, string(u.Status), u.Location,
			u.Description, u.Timestamp, toJSON(u.Metadata))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListUpdates(ctx context.Context, shipmentID string) ([]carrier.ShippingUpdate, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT shipment_id, tracking_number, status, location, description, carrier_time, metadata
        FROM shipment_updates WHERE shipment_id = $1 ORDER BY carrier_time`, shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updates := []carrier.ShippingUpdate{}
	for rows.Next() {
		var u carrier.ShippingUpdate
		var status string
		var metadata []byte
		if err := rows.Scan(&u.ShipmentID, &u.TrackingNumber, &status, &u.Location,
			&u.Description, &u.Timestamp, &metadata); err != nil {
			return nil, err
		}
		u.Status = carrier.ShipmentStatus(status)
		u.Metadata = fromJSON(metadata)
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

func (p *Postgres) SaveWebhook(ctx context.Context, hook *carrier.ShippingWebhook) error {
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO shipping_webhooks
            (id, carrier, event, payload, signature, received_at, processed, retry_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (id) DO UPDATE SET
            processed = EXCLUDED.processed, retry_count = EXCLUDED.retry_count`,
		hook.ID, hook.Carrier, hook.Event, hook.Payload, hook.Signature,
		hook.ReceivedAt, hook.Processed, hook.RetryCount)
	return err
}

func (p *Postgres) GetWebhook(ctx context.Context, id string) (*carrier.ShippingWebhook, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT id, carrier, event, payload, signature, received_at, processed, retry_count
        FROM shipping_webhooks WHERE id = $1`, id)

	var hook carrier.ShippingWebhook
	err := row.Scan(&hook.ID, &hook.Carrier, &hook.Event, &hook.Payload,
		&hook.Signature, &hook.ReceivedAt, &hook.Processed, &hook.RetryCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hook, nil
}

func (p *Postgres) ListWebhooks(ctx context.Context, carrierID string, limit int) ([]carrier.ShippingWebhook, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
        SELECT id, carrier, event, payload, signature, received_at, processed, retry_count
        FROM shipping_webhooks
        WHERE ($1 = '' OR carrier = $1)
        ORDER BY received_at DESC LIMIT $2`, carrierID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hooks := []carrier.ShippingWebhook{}
	for rows.Next() {
		var hook carrier.ShippingWebhook
		if err := rows.Scan(&hook.ID, &hook.Carrier, &hook.Event, &hook.Payload,
			&hook.Signature, &hook.ReceivedAt, &hook.Processed, &hook.RetryCount); err != nil {
			return nil, err
		}
		hooks = append(hooks, hook)
	}
	return hooks, rows.Err()
}

func toJSON(m map[string]string) []byte {
	if m == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}

func fromJSON(b []byte) map[string]string {
	m := map[string]string{}
	_ = json.Unmarshal(b, &m)
	return m
}

// Ensure Postgres implements Store
var _ Store = (*Postgres)(nil)
