package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/resilience"
)

const guideColumns = `id, slug, title, summary, body, domain, guide_type, sub_domain, unit, function_area,
	location, hero_image_url, status, download_count, is_editors_pick, last_updated_at, created_at`

// GuideRepository reads and writes the guides table over a direct database
// connection.
type GuideRepository struct {
	db       *sqlx.DB
	executor *resilience.Executor
	newID    func() string
}

func NewGuideRepository(db *sql.DB, executor *resilience.Executor) *GuideRepository {
	return &GuideRepository{
		db:       sqlx.NewDb(db, "pgx"),
		executor: executor,
		newID:    uuid.NewString,
	}
}

type guideRecord struct {
	ID            string         `db:"id"`
	Slug          string         `db:"slug"`
	Title         string         `db:"title"`
	Summary       sql.NullString `db:"summary"`
	Body          sql.NullString `db:"body"`
	Domain        sql.NullString `db:"domain"`
	GuideType     sql.NullString `db:"guide_type"`
	SubDomain     sql.NullString `db:"sub_domain"`
	Unit          sql.NullString `db:"unit"`
	FunctionArea  sql.NullString `db:"function_area"`
	Location      sql.NullString `db:"location"`
	HeroImageURL  sql.NullString `db:"hero_image_url"`
	Status        string         `db:"status"`
	DownloadCount int            `db:"download_count"`
	IsEditorsPick bool           `db:"is_editors_pick"`
	LastUpdatedAt sql.NullTime   `db:"last_updated_at"`
	CreatedAt     sql.NullTime   `db:"created_at"`
}

func (r guideRecord) toDomain() domain.Guide {
	return domain.Guide{
		ID:            r.ID,
		Slug:          r.Slug,
		Title:         r.Title,
		Summary:       r.Summary.String,
		Body:          r.Body.String,
		Domain:        r.Domain.String,
		GuideType:     r.GuideType.String,
		SubDomain:     r.SubDomain.String,
		Unit:          r.Unit.String,
		FunctionArea:  r.FunctionArea.String,
		Location:      r.Location.String,
		HeroImageURL:  r.HeroImageURL.String,
		Status:        domain.GuideStatus(r.Status),
		DownloadCount: r.DownloadCount,
		IsEditorsPick: r.IsEditorsPick,
		LastUpdatedAt: r.LastUpdatedAt.Time.UTC(),
		CreatedAt:     r.CreatedAt.Time.UTC(),
	}
}

func (r *GuideRepository) Select(ctx context.Context, query domain.GuideQuery) ([]domain.Guide, error) {
	var (
		where []string
		args  []any
	)
	if query.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(query.Status))
	}
	if query.Slug != "" {
		where = append(where, "slug = ?")
		args = append(args, query.Slug)
	}
	if len(query.IDs) > 0 {
		where = append(where, "id IN (?)")
		args = append(args, query.IDs)
	}

	stmt := "SELECT " + guideColumns + "\nFROM guides\n"
	if len(where) > 0 {
		stmt += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	stmt += "ORDER BY slug ASC, id ASC"

	stmt, args, err := sqlx.In(stmt, args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "select guides", err)
	}
	stmt = r.db.Rebind(stmt)

	var records []guideRecord
	err = r.call(ctx, "guides.select", func(ctx context.Context) error {
		records = records[:0]
		return r.db.SelectContext(ctx, &records, stmt, args...)
	})
	if err != nil {
		return nil, mapPGError("select guides", err)
	}

	out := make([]domain.Guide, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toDomain())
	}
	return out, nil
}

func (r *GuideRepository) Insert(ctx context.Context, guide *domain.Guide) (*domain.Guide, error) {
	if guide == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "insert guide", errors.New("nil guide"))
	}
	g := *guide
	if g.ID == "" {
		g.ID = r.newID()
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.LastUpdatedAt.IsZero() {
		g.LastUpdatedAt = now
	}

	var rec guideRecord
	err := r.call(ctx, "guides.insert", func(ctx context.Context) error {
		return r.db.QueryRowxContext(ctx, `
INSERT INTO guides (
	id, slug, title, summary, body, domain, guide_type, sub_domain, unit, function_area,
	location, hero_image_url, status, download_count, is_editors_pick, last_updated_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
RETURNING `+guideColumns,
			g.ID, g.Slug, g.Title, nullString(g.Summary), nullString(g.Body), nullString(g.Domain),
			nullString(g.GuideType), nullString(g.SubDomain), nullString(g.Unit), nullString(g.FunctionArea),
			nullString(g.Location), nullString(g.HeroImageURL), string(g.Status), g.DownloadCount,
			g.IsEditorsPick, g.LastUpdatedAt, g.CreatedAt,
		).StructScan(&rec)
	})
	if err != nil {
		return nil, mapPGError("insert guide", err)
	}
	inserted := rec.toDomain()
	return &inserted, nil
}

func (r *GuideRepository) Update(ctx context.Context, id string, patch domain.GuidePatch) error {
	var (
		sets []string
		args = []any{id}
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	text := func(column string, v *string) {
		if v != nil {
			set(column, nullString(*v))
		}
	}
	text("title", patch.Title)
	text("summary", patch.Summary)
	text("body", patch.Body)
	text("domain", patch.Domain)
	text("guide_type", patch.GuideType)
	text("sub_domain", patch.SubDomain)
	text("unit", patch.Unit)
	text("function_area", patch.FunctionArea)
	text("location", patch.Location)
	text("hero_image_url", patch.HeroImageURL)
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	updatedAt := patch.LastUpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	set("last_updated_at", updatedAt)

	stmt := "UPDATE guides\nSET " + strings.Join(sets, ", ") + "\nWHERE id = $1"
	var result sql.Result
	err := r.call(ctx, "guides.update", func(ctx context.Context) error {
		var execErr error
		result, execErr = r.db.ExecContext(ctx, stmt, args...)
		return execErr
	})
	if err != nil {
		return mapPGError("update guide", err)
	}
	return requireRow(result, "update guide", id)
}

func (r *GuideRepository) Delete(ctx context.Context, id string) error {
	var result sql.Result
	err := r.call(ctx, "guides.delete", func(ctx context.Context) error {
		var execErr error
		result, execErr = r.db.ExecContext(ctx, `DELETE FROM guides WHERE id = $1`, id)
		return execErr
	})
	if err != nil {
		return mapPGError("delete guide", err)
	}
	return requireRow(result, "delete guide", id)
}

func (r *GuideRepository) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if r.executor == nil {
		return fn(ctx)
	}
	return r.executor.Execute(ctx, operation, fn, classifyPGError)
}

func requireRow(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrGuideNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
