package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/taxi-dispatch/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) DB() *sql.DB { return p.db }

func (p *PostgresStore) Close() error { return p.db.Close() }

// Migrate executes a schema script such as migrations/001_create_tables.sql.
func (p *PostgresStore) Migrate(ctx context.Context, script string) error {
	_, err := p.db.ExecContext(ctx, script)
	return err
}

func (p *PostgresStore) SaveRide(ctx context.Context, r *models.Ride) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO rides(id, vehicle_id, rider_id, pickup_lat, pickup_lng, drop_lat, drop_lng, pickup_name, drop_name, status, fare, payment_id, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		r.ID, r.VehicleID, r.RiderID, r.Pickup.Lat, r.Pickup.Lng, r.Drop.Lat, r.Drop.Lng, r.PickupName, r.DropName, string(r.State), r.Fare, r.PaymentID, r.CreatedAt, r.UpdatedAt)
	return err
}

func (p *PostgresStore) UpdateRide(ctx context.Context, r *models.Ride) error {
	res, err := p.db.ExecContext(ctx, `UPDATE rides SET status=$1, payment_id=$2, updated_at=$3 WHERE id=$4`, string(r.State), r.PaymentID, r.UpdatedAt, r.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ActiveRides(ctx context.Context) ([]models.Ride, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, vehicle_id, rider_id, pickup_lat, pickup_lng, drop_lat, drop_lng, pickup_name, drop_name, status, fare, payment_id, created_at, updated_at
		FROM rides WHERE status IN ('requested','accepted','pickup_reached','trip_started') ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ride
	for rows.Next() {
		var r models.Ride
		var status string
		if err := rows.Scan(&r.ID, &r.VehicleID, &r.RiderID, &r.Pickup.Lat, &r.Pickup.Lng, &r.Drop.Lat, &r.Drop.Lng,
			&r.PickupName, &r.DropName, &status, &r.Fare, &r.PaymentID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.State = models.RideState(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) AppendPosition(ctx context.Context, rec models.HistoryRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO location_history(vehicle_id, latitude, longitude, recorded_at) VALUES($1,$2,$3,$4)`,
		rec.VehicleID, rec.Loc.Lat, rec.Loc.Lng, rec.RecordedAt)
	return err
}

func (p *PostgresStore) Positions(ctx context.Context, vehicleID string) ([]models.HistoryRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT latitude, longitude, recorded_at FROM location_history WHERE vehicle_id=$1 ORDER BY id`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.HistoryRecord, 0)
	for rows.Next() {
		rec := models.HistoryRecord{VehicleID: vehicleID}
		if err := rows.Scan(&rec.Loc.Lat, &rec.Loc.Lng, &rec.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgresStore) LatestPosition(ctx context.Context, vehicleID string) (models.HistoryRecord, error) {
	rec := models.HistoryRecord{VehicleID: vehicleID}
	err := p.db.QueryRowContext(ctx, `SELECT latitude, longitude, recorded_at FROM location_history WHERE vehicle_id=$1 ORDER BY id DESC LIMIT 1`, vehicleID).
		Scan(&rec.Loc.Lat, &rec.Loc.Lng, &rec.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	return rec, err
}
