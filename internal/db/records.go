package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/listing-reconcile/internal/partition"
	"github.com/listing-reconcile/internal/writer"
)

const recordsTable = "providers"

// phoneEmpty guards every write: a phone written by someone else between
// matching and writing is never overwritten.
const phoneEmpty = "(phone IS NULL OR phone = '')"

// RecordRepository reads canonical records and writes back phone numbers.
type RecordRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRecordRepository creates a repository over db.
func NewRecordRepository(db *sqlx.DB, logger *zap.Logger) *RecordRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordRepository{db: db, logger: logger}
}

type recordRow struct {
	ID         uuid.UUID      `db:"id"`
	Name       sql.NullString `db:"name"`
	Phone      sql.NullString `db:"phone"`
	PostalCode sql.NullString `db:"postal_code"`
	City       sql.NullString `db:"city"`
	Active     bool           `db:"is_active"`
}

// ActiveByPartition returns the active records whose department is code.
func (r *RecordRepository) ActiveByPartition(ctx context.Context, code string) ([]partition.Record, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"id",
		"name",
		"phone",
		sb.As("address_postal_code", "postal_code"),
		sb.As("address_city", "city"),
		"is_active",
	)
	sb.From(recordsTable)
	sb.Where(
		sb.Equal("address_department", code),
		sb.Equal("is_active", true),
	)

	query, args := sb.Build()
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select records for partition %s: %w", code, err)
	}

	records := make([]partition.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, partition.Record{
			ID:         row.ID,
			Name:       row.Name.String,
			Phone:      row.Phone.String,
			PostalCode: row.PostalCode.String,
			City:       row.City.String,
			Partition:  code,
			Active:     row.Active,
		})
	}

	r.logger.Debug("loaded partition records", zap.String("partition", code), zap.Int("count", len(records)))
	return records, nil
}

// CountActive returns the number of active records.
func (r *RecordRepository) CountActive(ctx context.Context) (int, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)").From(recordsTable).Where(sb.Equal("is_active", true))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count active records: %w", err)
	}
	return count, nil
}

// BulkAssignPhones sets the phone of every record in updates whose phone is
// still empty, in one statement. It returns the number of rows changed.
func (r *RecordRepository) BulkAssignPhones(ctx context.Context, updates []writer.Update) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	ids := make([]string, len(updates))
	phones := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.RecordID.String()
		phones[i] = u.Phone
	}

	query := `
		UPDATE ` + recordsTable + ` AS p
		SET phone = v.phone
		FROM unnest($1::uuid[], $2::text[]) AS v(id, phone)
		WHERE p.id = v.id AND (p.phone IS NULL OR p.phone = '')`

	res, err := r.db.ExecContext(ctx, query, pq.Array(ids), pq.Array(phones))
	if err != nil {
		return 0, fmt.Errorf("bulk phone update of %d rows: %w", len(updates), err)
	}
	return res.RowsAffected()
}

// AssignPhone sets one record's phone if it is still empty. It returns the
// number of rows changed (0 when the guard rejected the write).
func (r *RecordRepository) AssignPhone(ctx context.Context, u writer.Update) (int64, error) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(recordsTable)
	ub.Set(ub.Assign("phone", u.Phone))
	ub.Where(ub.Equal("id", u.RecordID.String()), phoneEmpty)

	query, args := ub.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("phone update of record %s: %w", u.RecordID, err)
	}
	return res.RowsAffected()
}
