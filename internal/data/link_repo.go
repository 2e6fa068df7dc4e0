package data

import (
	"context"
	"database/sql"
	"time"

	"shortlink/internal/domain"
	"shortlink/internal/infra/eventbus"

	"github.com/go-kratos/kratos/v2/log"
)

// Compile-time interface check
var _ domain.LinkRepository = (*linkRepo)(nil)

// All queries use $N placeholders in strictly ascending first-occurrence
// order, which binds positionally on both lib/pq and go-sqlite3.
const linkColumns = `id, code, original_url, is_active, expires_at, click_limit, total_clicks, password_hash, owner_type, owner_user_id, owner_org_id, created_at, updated_at`

// linkRepo implements domain.LinkRepository over the SQL store with a
// cache-aside projection cache for the redirect hot path.
type linkRepo struct {
	data  *Data
	cache LinkCache
	log   *log.Helper
}

// NewLinkRepo creates a new link repository.
func NewLinkRepo(data *Data, cache LinkCache, logger log.Logger) domain.LinkRepository {
	return &linkRepo{
		data:  data,
		cache: cache,
		log:   log.NewHelper(logger),
	}
}

// NextLinkID reserves the next numeric identifier from the sequence table.
func (r *linkRepo) NextLinkID(ctx context.Context) (int64, error) {
	var id int64
	err := r.data.db.QueryRowContext(ctx,
		`UPDATE link_id_seq SET value = value + 1 RETURNING value`,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Create inserts the link and its uncommitted events (outbox rows) in one
// transaction. The events reach the bus only through the forwarder, so a
// rollback discards both the link and its events together.
func (r *linkRepo) Create(ctx context.Context, link *domain.ShortLink) error {
	tx, err := r.data.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO short_links (code, original_url, is_active, expires_at, click_limit, total_clicks, password_hash, owner_type, owner_user_id, owner_org_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		link.Code(),
		link.OriginalURL(),
		link.IsActive(),
		nullableUnix(link.ExpiresAt()),
		link.ClickLimit(),
		link.TotalClicks(),
		link.PasswordHash(),
		string(link.Owner().Type),
		link.Owner().UserID,
		link.Owner().OrganizationID,
		link.CreatedAt().Unix(),
		link.UpdatedAt().Unix(),
	).Scan(&id)
	if err != nil {
		return err
	}

	if err := eventbus.StoreInOutbox(ctx, tx, link.Events()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	link.SetID(id)
	link.ClearEvents()
	r.cache.Set(ctx, projectionOf(link))
	return nil
}

// Update persists the mutable fields of an existing link.
func (r *linkRepo) Update(ctx context.Context, link *domain.ShortLink) error {
	res, err := r.data.db.ExecContext(ctx,
		`UPDATE short_links
		 SET code = $1, original_url = $2, is_active = $3, expires_at = $4, click_limit = $5, password_hash = $6, updated_at = $7
		 WHERE id = $8`,
		link.Code(),
		link.OriginalURL(),
		link.IsActive(),
		nullableUnix(link.ExpiresAt()),
		link.ClickLimit(),
		link.PasswordHash(),
		link.UpdatedAt().Unix(),
		link.ID(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrLinkNotFound
	}

	r.cache.Invalidate(ctx, link.Code())
	return nil
}

// FindByCode retrieves the full aggregate, bypassing the projection cache.
func (r *linkRepo) FindByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	row := r.data.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM short_links WHERE code = $1`, code)

	link, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// FindProjection retrieves the narrow hot-path read model, cache-aside.
func (r *linkRepo) FindProjection(ctx context.Context, code string) (*domain.LinkProjection, error) {
	if cached, _ := r.cache.Get(ctx, code); cached != nil {
		return cached, nil
	}

	row := r.data.db.QueryRowContext(ctx,
		`SELECT id, code, original_url, is_active, expires_at, click_limit, total_clicks, password_hash
		 FROM short_links WHERE code = $1`, code)

	var (
		p         domain.LinkProjection
		expiresAt sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Code, &p.OriginalURL, &p.IsActive, &expiresAt, &p.ClickLimit, &p.TotalClicks, &p.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ExpiresAt = ptrTime(expiresAt)
	p.IsPasswordProtected = p.PasswordHash != ""

	r.cache.Set(ctx, &p)
	return &p, nil
}

// CodeExists reports whether a short code is taken.
func (r *linkRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.data.db.QueryRowContext(ctx,
		`SELECT 1 FROM short_links WHERE code = $1`, code).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IncrementClicks applies the conditional increment. The WHERE clause
// re-checks validity so the store, not the caller's possibly stale read,
// decides whether the click counts.
func (r *linkRepo) IncrementClicks(ctx context.Context, code string, now time.Time) (bool, error) {
	res, err := r.data.db.ExecContext(ctx,
		`UPDATE short_links
		 SET total_clicks = total_clicks + 1, updated_at = $1
		 WHERE code = $2
		   AND is_active
		   AND (expires_at IS NULL OR expires_at > $3)
		   AND (click_limit < 0 OR total_clicks < click_limit)`,
		now.Unix(), code, now.Unix(),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	r.cache.Invalidate(ctx, code)
	return affected > 0, nil
}

// Delete removes a link by code.
func (r *linkRepo) Delete(ctx context.Context, code string) error {
	res, err := r.data.db.ExecContext(ctx,
		`DELETE FROM short_links WHERE code = $1`, code)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrLinkNotFound
	}

	r.cache.Invalidate(ctx, code)
	return nil
}

// FindAll lists links with pagination, newest first.
func (r *linkRepo) FindAll(ctx context.Context, page, pageSize int) ([]*domain.ShortLink, int64, error) {
	offset := (page - 1) * pageSize

	rows, err := r.data.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM short_links ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var links []*domain.ShortLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, 0, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.data.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM short_links`).Scan(&total); err != nil {
		return nil, 0, err
	}

	return links, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.ShortLink, error) {
	var (
		id                      int64
		code, originalURL       string
		isActive                bool
		expiresAt               sql.NullInt64
		clickLimit, totalClicks int64
		passwordHash            string
		ownerType               string
		ownerUserID, ownerOrgID int64
		createdAt, updatedAt    int64
	)

	if err := row.Scan(&id, &code, &originalURL, &isActive, &expiresAt, &clickLimit, &totalClicks,
		&passwordHash, &ownerType, &ownerUserID, &ownerOrgID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return domain.ReconstructShortLink(
		id, code, originalURL,
		isActive,
		ptrTime(expiresAt),
		clickLimit, totalClicks,
		passwordHash,
		domain.Owner{Type: domain.OwnerType(ownerType), UserID: ownerUserID, OrganizationID: ownerOrgID},
		time.Unix(createdAt, 0).UTC(),
		time.Unix(updatedAt, 0).UTC(),
	), nil
}

func projectionOf(link *domain.ShortLink) *domain.LinkProjection {
	return &domain.LinkProjection{
		ID:                  link.ID(),
		Code:                link.Code(),
		OriginalURL:         link.OriginalURL(),
		IsActive:            link.IsActive(),
		ExpiresAt:           link.ExpiresAt(),
		ClickLimit:          link.ClickLimit(),
		TotalClicks:         link.TotalClicks(),
		IsPasswordProtected: link.IsPasswordProtected(),
		PasswordHash:        link.PasswordHash(),
	}
}

func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func ptrTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}
