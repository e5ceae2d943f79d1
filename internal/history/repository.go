package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hausbridge/fleet-connector/internal/infrastructure/database"
)

// Query limits for reading the journal.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry is one recorded entity state update.
type Entry struct {
	ID        int64          `json:"id"`
	DeviceID  string         `json:"deviceId"`
	EntityKey string         `json:"entityKey"`
	States    map[string]any `json:"states"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Repository appends and reads entity state journal rows.
//
// Thread Safety:
//   - Safe for concurrent use; the underlying *sql.DB serialises access.
type Repository struct {
	db *database.DB
}

// NewRepository creates a repository backed by the given database.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Record appends one entity state update to the journal.
//
// The states map is stored as JSON so heterogeneous value types survive
// round-trips without a per-entity schema.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Device identifier the entity belongs to
//   - entityKey: Entity key within the device
//   - states: State name to value map at the time of the update
//
// Returns:
//   - error: If serialisation or the insert fails
func (r *Repository) Record(ctx context.Context, deviceID, entityKey string, states map[string]any) error {
	encoded, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("encoding states: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO entity_history (device_id, entity_key, states) VALUES (?, ?, ?)",
		deviceID, entityKey, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("inserting history row: %w", err)
	}

	return nil
}

// Recent returns the newest journal entries for a device, most recent first.
//
// A limit of 0 or less uses the default (50); limits above 200 are clamped.
func (r *Repository) Recent(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, entity_key, states, created_at
		FROM entity_history
		WHERE device_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}

	return entries, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanEntry.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry converts one journal row into an Entry.
func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry     Entry
		rawStates string
		createdAt string
	)

	if err := row.Scan(&entry.ID, &entry.DeviceID, &entry.EntityKey, &rawStates, &createdAt); err != nil {
		return Entry{}, fmt.Errorf("scanning history row: %w", err)
	}

	if err := json.Unmarshal([]byte(rawStates), &entry.States); err != nil {
		return Entry{}, fmt.Errorf("decoding states: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing created_at: %w", err)
	}
	entry.CreatedAt = parsed

	return entry, nil
}
