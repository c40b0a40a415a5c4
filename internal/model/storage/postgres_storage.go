package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	sq "github.com/Masterminds/squirrel"

	// postgres driver
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"max.ks1230/rates-bot/internal/entity/rate"
	"max.ks1230/rates-bot/internal/model/customerr"
)

const dsnTemplate = "user=%s password=%s host=%s dbname=%s sslmode=disable"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var recordColumns = []string{
	"rate_date",
	"ust_base_subunits",
	"cny_base_subunits",
	"ust_markup_subunits",
	"cny_markup_subunits",
}

type config interface {
	Host() string
	Username() string
	Password() string
	Database() string
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config config) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", fmt.Sprintf(dsnTemplate,
		config.Username(),
		config.Password(),
		config.Host(),
		config.Database()))
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	return &PostgresStorage{db}, nil
}

// Upsert inserts the day's record or overwrites all four numeric fields in
// place. The unique constraint on rate_date plus ON CONFLICT keeps the
// read-check-then-write race away even under concurrent triggers.
func (s *PostgresStorage) Upsert(ctx context.Context, rec rate.Record) error {
	query := psql.Insert("rates").
		Columns("rate_date", "ust_base_subunits", "cny_base_subunits",
			"ust_markup_subunits", "cny_markup_subunits", "updated_at").
		Values(rec.Key(), rec.UstBaseSubunits, rec.CnyBaseSubunits,
			rec.UstMarkupSubunits, rec.CnyMarkupSubunits, time.Now()).
		Suffix(`ON CONFLICT(rate_date) DO UPDATE SET
			ust_base_subunits = ?, cny_base_subunits = ?,
			ust_markup_subunits = ?, cny_markup_subunits = ?, updated_at = ?`,
			rec.UstBaseSubunits, rec.CnyBaseSubunits,
			rec.UstMarkupSubunits, rec.CnyMarkupSubunits, time.Now())

	_, err := query.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return &customerr.StorageError{Err: errors.Wrap(err, "upsert rates")}
	}
	return nil
}

func (s *PostgresStorage) GetByDate(ctx context.Context, date time.Time) (rate.Record, error) {
	query := psql.Select(recordColumns...).
		From("rates").
		Where(sq.Eq{"rate_date": date.Format(rate.DateLayout)})

	return s.queryOne(ctx, query)
}

func (s *PostgresStorage) GetLatest(ctx context.Context) (rate.Record, error) {
	query := psql.Select(recordColumns...).
		From("rates").
		OrderBy("rate_date DESC").
		Limit(1)

	return s.queryOne(ctx, query)
}

// GetRange returns records ordered by ascending date. A nil bound leaves that
// side unbounded; both bounds are inclusive.
func (s *PostgresStorage) GetRange(ctx context.Context, from, to *time.Time) ([]rate.Record, error) {
	query := psql.Select(recordColumns...).
		From("rates").
		OrderBy("rate_date ASC")
	if from != nil {
		query = query.Where(sq.GtOrEq{"rate_date": from.Format(rate.DateLayout)})
	}
	if to != nil {
		query = query.Where(sq.LtOrEq{"rate_date": to.Format(rate.DateLayout)})
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, &customerr.StorageError{Err: errors.Wrap(err, "get rates range")}
	}
	defer func() {
		if rowErr := rows.Close(); rowErr != nil {
			log.Println("error closing rows", rowErr)
		}
	}()

	recs := make([]rate.Record, 0)
	for rows.Next() {
		var rec rate.Record
		err = rows.Scan(&rec.Date, &rec.UstBaseSubunits, &rec.CnyBaseSubunits,
			&rec.UstMarkupSubunits, &rec.CnyMarkupSubunits)
		if err != nil {
			return nil, &customerr.StorageError{Err: errors.Wrap(err, "get rates range")}
		}
		recs = append(recs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, &customerr.StorageError{Err: errors.Wrap(err, "get rates range")}
	}

	return recs, nil
}

func (s *PostgresStorage) ExistsForDate(ctx context.Context, date time.Time) (bool, error) {
	query := psql.Select("1").
		From("rates").
		Where(sq.Eq{"rate_date": date.Format(rate.DateLayout)})

	var one int
	err := query.RunWith(s.db).QueryRowContext(ctx).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &customerr.StorageError{Err: errors.Wrap(err, "check rates exist")}
	}
	return true, nil
}

func (s *PostgresStorage) queryOne(ctx context.Context, query sq.SelectBuilder) (rate.Record, error) {
	var rec rate.Record
	err := query.RunWith(s.db).QueryRowContext(ctx).
		Scan(&rec.Date, &rec.UstBaseSubunits, &rec.CnyBaseSubunits,
			&rec.UstMarkupSubunits, &rec.CnyMarkupSubunits)
	if errors.Is(err, sql.ErrNoRows) {
		return rate.Record{}, customerr.ErrNotFound
	}
	if err != nil {
		return rate.Record{}, &customerr.StorageError{Err: errors.Wrap(err, "get rates")}
	}
	return rec, nil
}
