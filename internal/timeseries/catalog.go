package timeseries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Catalog stores channel definitions in the timeseries_channels table.
type Catalog struct {
	db *sql.DB
}

// NewCatalog creates a SQLite-backed channel catalogue.
func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

const channelColumns = `key, name, data_type, is_index, index_key, created_at`

// Create inserts the channel unless one with the same name exists, then
// returns the stored channel. An existing channel whose definition differs
// from spec yields ErrChannelConflict.
func (c *Catalog) Create(ctx context.Context, spec ChannelSpec) (Channel, error) {
	if err := spec.Validate(); err != nil {
		return Channel{}, err
	}

	if !spec.IsIndex {
		idx, err := c.Get(ctx, spec.Index)
		if err != nil {
			return Channel{}, fmt.Errorf("resolving index of %s: %w", spec.Name, err)
		}
		if !idx.IsIndex {
			return Channel{}, fmt.Errorf("%w: %s: index %s is not an index channel", ErrInvalidChannel, spec.Name, idx.Name)
		}
	}

	var index sql.NullInt64
	if spec.Index != 0 {
		index = sql.NullInt64{Int64: spec.Index, Valid: true}
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO timeseries_channels (name, data_type, is_index, index_key, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		spec.Name, string(spec.DataType), spec.IsIndex, index,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Channel{}, fmt.Errorf("inserting channel %s: %w", spec.Name, err)
	}

	ch, err := c.GetByName(ctx, spec.Name)
	if err != nil {
		return Channel{}, err
	}
	if !ch.matches(spec) {
		return Channel{}, fmt.Errorf("%w: %s", ErrChannelConflict, spec.Name)
	}
	return ch, nil
}

// Get retrieves a channel by key.
func (c *Catalog) Get(ctx context.Context, key int64) (Channel, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM timeseries_channels WHERE key = ?`, key)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, fmt.Errorf("%w: key %d", ErrChannelNotFound, key)
	}
	return ch, err
}

// GetByName retrieves a channel by name.
func (c *Catalog) GetByName(ctx context.Context, name string) (Channel, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM timeseries_channels WHERE name = ?`, name)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, fmt.Errorf("%w: %s", ErrChannelNotFound, name)
	}
	return ch, err
}

// List returns all channels ordered by name.
func (c *Catalog) List(ctx context.Context) ([]Channel, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+channelColumns+` FROM timeseries_channels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating channels: %w", err)
	}
	return channels, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (Channel, error) {
	var (
		ch        Channel
		dataType  string
		index     sql.NullInt64
		createdAt string
	)
	if err := row.Scan(&ch.Key, &ch.Name, &dataType, &ch.IsIndex, &index, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Channel{}, err
		}
		return Channel{}, fmt.Errorf("scanning channel: %w", err)
	}
	ch.DataType = DataType(dataType)
	ch.Index = index.Int64

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Channel{}, fmt.Errorf("parsing created_at of %s: %w", ch.Name, err)
	}
	ch.CreatedAt = t
	return ch, nil
}
