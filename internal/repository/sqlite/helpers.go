package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"packetflow/internal/repository"
)

// deliveryColumns is the column order shared by INSERT, SELECT and
// deliveryRow.scanArgs. recorded_at is stored as unix milliseconds.
const deliveryColumns = `run_id, packet_id, source, destination, path, hops,
	spawned_frame, delivered_frame, recorded_at`

// deliveryRow holds all columns from a delivery query for scanning
type deliveryRow struct {
	RunID          string
	PacketID       int
	Source         string
	Destination    string
	PathJSON       sql.NullString
	Hops           int
	SpawnedFrame   int64
	DeliveredFrame int64
	RecordedAtMs   int64
}

// scanArgs returns pointers to all fields for sql.Scan().
// MUST match deliveryColumns order exactly.
func (r *deliveryRow) scanArgs() []interface{} {
	return []interface{}{
		&r.RunID, &r.PacketID, &r.Source, &r.Destination, &r.PathJSON, &r.Hops,
		&r.SpawnedFrame, &r.DeliveredFrame, &r.RecordedAtMs,
	}
}

func (r *deliveryRow) toDomain() (repository.Delivery, error) {
	d := repository.Delivery{
		RunID:          r.RunID,
		PacketID:       r.PacketID,
		Source:         r.Source,
		Destination:    r.Destination,
		SpawnedFrame:   r.SpawnedFrame,
		DeliveredFrame: r.DeliveredFrame,
		RecordedAt:     time.UnixMilli(r.RecordedAtMs).UTC(),
	}
	if err := unmarshalJSONField(r.PathJSON, &d.Path); err != nil {
		return repository.Delivery{}, err
	}
	return d, nil
}

// deliveryInsertArgs returns the values for an INSERT in deliveryColumns order
func deliveryInsertArgs(d repository.Delivery) ([]interface{}, error) {
	path, err := marshalToNull(d.Path)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		d.RunID, d.PacketID, d.Source, d.Destination, path, d.Hops(),
		d.SpawnedFrame, d.DeliveredFrame, d.RecordedAt.UnixMilli(),
	}, nil
}

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals a path to nullable JSON, storing NULL for empty paths
func marshalToNull(path []string) (sql.NullString, error) {
	if len(path) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(path)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
