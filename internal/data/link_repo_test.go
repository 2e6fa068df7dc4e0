package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"shortlink/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

// newTestData opens a migrated in-memory store without Redis.
func newTestData(t *testing.T) *Data {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db, "sqlite3"))

	return &Data{db: db, driver: "sqlite3"}
}

func newTestLinkRepo(t *testing.T) domain.LinkRepository {
	d := newTestData(t)
	return NewLinkRepo(d, &noopLinkCache{}, log.DefaultLogger)
}

func newLink(code string, expiresAt *time.Time, clickLimit int64) *domain.ShortLink {
	link := domain.NewShortLink(code, "https://example.com/"+code, expiresAt, clickLimit, "", domain.Owner{Type: domain.OwnerUser, UserID: 7})
	return link
}

func TestLinkRepo_CreateAssignsID(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()

	link := newLink("abc234", nil, domain.UnlimitedClicks)
	require.NoError(t, repo.Create(ctx, link))

	assert.NotZero(t, link.ID())
	assert.Empty(t, link.Events(), "events are cleared once committed to the outbox")
}

func TestLinkRepo_CreateStoresEventsInOutbox(t *testing.T) {
	d := newTestData(t)
	repo := NewLinkRepo(d, &noopLinkCache{}, log.DefaultLogger)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("abc234", nil, domain.UnlimitedClicks)))

	var count int
	require.NoError(t, d.db.QueryRow(`SELECT COUNT(*) FROM outbox_messages`).Scan(&count))
	assert.Equal(t, 1, count, "LinkCreated lands in the outbox in the same transaction")
}

func TestLinkRepo_CreateDuplicateCodeFails(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("dup234", nil, domain.UnlimitedClicks)))
	err := repo.Create(ctx, newLink("dup234", nil, domain.UnlimitedClicks))
	assert.Error(t, err)
}

func TestLinkRepo_FindByCode(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	created := newLink("find23", &expiresAt, 10)
	require.NoError(t, repo.Create(ctx, created))

	found, err := repo.FindByCode(ctx, "find23")
	require.NoError(t, err)
	assert.Equal(t, created.ID(), found.ID())
	assert.Equal(t, "https://example.com/find23", found.OriginalURL())
	assert.True(t, found.IsActive())
	assert.Equal(t, int64(10), found.ClickLimit())
	require.NotNil(t, found.ExpiresAt())
	assert.True(t, expiresAt.Equal(*found.ExpiresAt()))
	assert.Equal(t, domain.OwnerUser, found.Owner().Type)
	assert.Equal(t, int64(7), found.Owner().UserID)
}

func TestLinkRepo_FindByCode_NotFound(t *testing.T) {
	repo := newTestLinkRepo(t)

	_, err := repo.FindByCode(context.Background(), "absent")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestLinkRepo_FindProjection(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("proj23", nil, 5)))

	proj, err := repo.FindProjection(ctx, "proj23")
	require.NoError(t, err)
	require.NotNil(t, proj)
	assert.Equal(t, "proj23", proj.Code)
	assert.Equal(t, int64(5), proj.ClickLimit)
	assert.Zero(t, proj.TotalClicks)
	assert.False(t, proj.IsPasswordProtected)
}

func TestLinkRepo_FindProjection_MissIsNilNil(t *testing.T) {
	repo := newTestLinkRepo(t)

	proj, err := repo.FindProjection(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, proj)
}

func TestLinkRepo_CodeExists(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("exist2", nil, domain.UnlimitedClicks)))

	taken, err := repo.CodeExists(ctx, "exist2")
	require.NoError(t, err)
	assert.True(t, taken)

	free, err := repo.CodeExists(ctx, "nope22")
	require.NoError(t, err)
	assert.False(t, free)
}

func TestLinkRepo_NextLinkID_Monotonic(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()

	first, err := repo.NextLinkID(ctx)
	require.NoError(t, err)
	second, err := repo.NextLinkID(ctx)
	require.NoError(t, err)

	assert.Equal(t, first+1, second)
}

func TestLinkRepo_IncrementClicks(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newLink("inc234", nil, domain.UnlimitedClicks)))

	applied, err := repo.IncrementClicks(ctx, "inc234", now)
	require.NoError(t, err)
	assert.True(t, applied)

	proj, err := repo.FindProjection(ctx, "inc234")
	require.NoError(t, err)
	assert.Equal(t, int64(1), proj.TotalClicks)
}

func TestLinkRepo_IncrementClicks_StopsAtLimit(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newLink("lim234", nil, 2)))

	for i := 0; i < 2; i++ {
		applied, err := repo.IncrementClicks(ctx, "lim234", now)
		require.NoError(t, err)
		assert.True(t, applied)
	}

	applied, err := repo.IncrementClicks(ctx, "lim234", now)
	require.NoError(t, err)
	assert.False(t, applied, "the conditional update refuses the third click")

	proj, err := repo.FindProjection(ctx, "lim234")
	require.NoError(t, err)
	assert.Equal(t, int64(2), proj.TotalClicks)
}

func TestLinkRepo_IncrementClicks_ExpiredIsNoop(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, newLink("exp234", &past, domain.UnlimitedClicks)))

	applied, err := repo.IncrementClicks(ctx, "exp234", now)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestLinkRepo_IncrementClicks_InactiveIsNoop(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()

	link := newLink("off234", nil, domain.UnlimitedClicks)
	require.NoError(t, repo.Create(ctx, link))
	link.Deactivate()
	require.NoError(t, repo.Update(ctx, link))

	applied, err := repo.IncrementClicks(ctx, "off234", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestLinkRepo_Update(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()

	link := newLink("upd234", nil, domain.UnlimitedClicks)
	require.NoError(t, repo.Create(ctx, link))

	link.ChangeCode("new234")
	require.NoError(t, repo.Update(ctx, link))

	_, err := repo.FindByCode(ctx, "upd234")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)

	found, err := repo.FindByCode(ctx, "new234")
	require.NoError(t, err)
	assert.Equal(t, link.ID(), found.ID())
}

func TestLinkRepo_Update_NotFound(t *testing.T) {
	repo := newTestLinkRepo(t)

	ghost := newLink("ghost2", nil, domain.UnlimitedClicks)
	ghost.SetID(9999)
	ghost.ClearEvents()

	err := repo.Update(context.Background(), ghost)
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestLinkRepo_Delete(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("del234", nil, domain.UnlimitedClicks)))
	require.NoError(t, repo.Delete(ctx, "del234"))

	_, err := repo.FindByCode(ctx, "del234")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "del234"), domain.ErrLinkNotFound)
}

func TestLinkRepo_FindAll_Pagination(t *testing.T) {
	repo := newTestLinkRepo(t)
	ctx := context.Background()

	codes := []string{"pg2222", "pg3333", "pg4444", "pg5555", "pg6666"}
	for _, code := range codes {
		require.NoError(t, repo.Create(ctx, newLink(code, nil, domain.UnlimitedClicks)))
	}

	page1, total, err := repo.FindAll(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, page1, 3)
	assert.Equal(t, int64(5), total)

	page2, total, err := repo.FindAll(ctx, 2, 3)
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	assert.Equal(t, int64(5), total)

	page3, _, err := repo.FindAll(ctx, 3, 3)
	require.NoError(t, err)
	assert.Empty(t, page3)
}
