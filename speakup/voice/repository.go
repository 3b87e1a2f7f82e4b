package voice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound = errors.New("voice override not found")
)

const overridesTable = "voice_overrides"

// OverrideRepository persists per-speaker preset choices that take
// precedence over the configured speaker mapping.
type OverrideRepository interface {
	Find(ctx context.Context, speaker string) (PresetID, error)
	Save(ctx context.Context, speaker string, presetID PresetID) error
	Delete(ctx context.Context, speaker string) error
	List(ctx context.Context) (map[string]PresetID, error)
}

func NewOverrideRepository(db *sqlx.DB) OverrideRepository {
	placeholder := sq.Question
	if db.DriverName() == "postgres" {
		placeholder = sq.Dollar
	}
	return &overrideRepositoryImpl{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

type overrideRepositoryImpl struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
}

type overrideRow struct {
	Speaker  string   `db:"speaker"`
	PresetID PresetID `db:"preset_id"`
}

func (r *overrideRepositoryImpl) Find(ctx context.Context, speaker string) (PresetID, error) {
	query, args, err := r.builder.
		Select("preset_id").
		From(overridesTable).
		Where(sq.Eq{"speaker": speaker}).
		ToSql()
	if err != nil {
		return "", err
	}

	var presetID PresetID
	if err := r.db.GetContext(ctx, &presetID, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to find voice override: %w", err)
	}
	return presetID, nil
}

// Save replaces any existing override for speaker.
func (r *overrideRepositoryImpl) Save(ctx context.Context, speaker string, presetID PresetID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, args, err := r.builder.Delete(overridesTable).Where(sq.Eq{"speaker": speaker}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to replace voice override: %w", err)
	}

	query, args, err = r.builder.
		Insert(overridesTable).
		Columns("speaker", "preset_id").
		Values(speaker, string(presetID)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save voice override: %w", err)
	}

	return tx.Commit()
}

func (r *overrideRepositoryImpl) Delete(ctx context.Context, speaker string) error {
	query, args, err := r.builder.Delete(overridesTable).Where(sq.Eq{"speaker": speaker}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete voice override: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *overrideRepositoryImpl) List(ctx context.Context) (map[string]PresetID, error) {
	query, args, err := r.builder.
		Select("speaker", "preset_id").
		From(overridesTable).
		OrderBy("speaker").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []overrideRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list voice overrides: %w", err)
	}

	overrides := make(map[string]PresetID, len(rows))
	for _, row := range rows {
		overrides[row.Speaker] = row.PresetID
	}
	return overrides, nil
}

// NopOverrideRepository stores nothing. It is used when no database is configured.
type NopOverrideRepository struct{}

func (NopOverrideRepository) Find(context.Context, string) (PresetID, error) {
	return "", ErrNotFound
}

func (NopOverrideRepository) Save(context.Context, string, PresetID) error {
	return errors.New("voice overrides are not persisted")
}

func (NopOverrideRepository) Delete(context.Context, string) error {
	return ErrNotFound
}

func (NopOverrideRepository) List(context.Context) (map[string]PresetID, error) {
	return map[string]PresetID{}, nil
}
