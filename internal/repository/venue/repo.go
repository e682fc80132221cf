// Package venue implements the relational venue store over PostgreSQL.
package venue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/kailas-cloud/venuerank/internal/domain"
)

// Config holds PostgreSQL connection pool parameters.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const selectColumns = `
SELECT c.id, c.name, c.do, c.si, c.gu, c.detail_address, c.sub_category,
       c.business_hour, c.phone, c.type, c.image, c.latitude, c.longitude, c.menu,
       COALESCE(r.review_count, 0), COALESCE(r.average_stars, 0)
FROM category c
LEFT JOIN (
    SELECT category_id, COUNT(*) AS review_count, AVG(stars)::float8 AS average_stars
    FROM reviews
    GROUP BY category_id
) r ON r.category_id = c.id`

// Repo implements the venue store over database/sql.
type Repo struct {
	db *sql.DB
}

// Open connects to PostgreSQL through lib/pq and applies pool limits.
func Open(cfg Config) (*Repo, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	sqlDB, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return New(sqlDB), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Close releases the connection pool.
func (r *Repo) Close() error {
	return r.db.Close()
}

// HealthCheck pings the database.
func (r *Repo) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetByID returns one venue or domain.ErrVenueNotFound.
func (r *Repo) GetByID(ctx context.Context, id string) (domain.VenueDetail, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE c.id = $1`, id)
	v, err := scanVenue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VenueDetail{}, fmt.Errorf("venue %s: %w", id, domain.ErrVenueNotFound)
	}
	if err != nil {
		return domain.VenueDetail{}, fmt.Errorf("get venue %s: %w", id, err)
	}
	return v, nil
}

// GetByIDs returns the venues found among ids keyed by id. Missing ids are absent from the map.
func (r *Repo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.VenueDetail, error) {
	out := make(map[string]domain.VenueDetail, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE c.id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get venues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		out[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venues: %w", err)
	}
	return out, nil
}

// RandomSample returns up to n random venues. Empty region or categoryCode disables that filter.
func (r *Repo) RandomSample(ctx context.Context, region, categoryCode string, n int) ([]domain.VenueDetail, error) {
	if n <= 0 {
		return nil, nil
	}

	var (
		where []string
		args  []any
	)
	if region != "" {
		args = append(args, region)
		where = append(where, "c.gu = $"+strconv.Itoa(len(args)))
	}
	if categoryCode != "" {
		args = append(args, categoryCode)
		where = append(where, "c.type = $"+strconv.Itoa(len(args)))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, n)
	query += " ORDER BY random() LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("random venues: %w", err)
	}
	defer rows.Close()

	var out []domain.VenueDetail
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venues: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVenue(s scanner) (domain.VenueDetail, error) {
	var (
		v                                           domain.VenueDetail
		do, si, gu, detail, sub, hours, phone, menu sql.NullString
		image, typ, lat, lng                        sql.NullString
	)
	err := s.Scan(
		&v.ID, &v.Name, &do, &si, &gu, &detail, &sub,
		&hours, &phone, &typ, &image, &lat, &lng, &menu,
		&v.ReviewCount, &v.AverageStars,
	)
	if err != nil {
		return domain.VenueDetail{}, err
	}
	v.Do, v.Si, v.Gu, v.DetailAddress = do.String, si.String, gu.String, detail.String
	v.SubCategory, v.BusinessHour, v.Phone = sub.String, hours.String, phone.String
	v.Image, v.Menu = image.String, menu.String
	if typ.Valid {
		v.Type, _ = strconv.Atoi(strings.TrimSpace(typ.String))
	}
	v.Latitude = parseCoord(lat)
	v.Longitude = parseCoord(lng)
	return v, nil
}

// parseCoord parses coordinates stored as text. Unparseable values become nil.
func parseCoord(s sql.NullString) *float64 {
	if !s.Valid {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s.String), 64)
	if err != nil {
		return nil
	}
	return &f
}
