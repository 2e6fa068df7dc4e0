package data

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shortlink/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"
)

// IntegrationTestSuite runs the repositories against real PostgreSQL and
// Redis via testcontainers.
type IntegrationTestSuite struct {
	suite.Suite
	ctx            context.Context
	pgContainer    *postgres.PostgresContainer
	redisContainer *tcredis.RedisContainer
	db             *sql.DB
	redisClient    *redis.Client
	data           *Data
	cache          LinkCache
	links          domain.LinkRepository
	clicks         domain.ClickRepository
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	pgContainer, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(s.T(), err)
	s.pgContainer = pgContainer

	redisContainer, err := tcredis.Run(s.ctx,
		"redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(s.T(), err)
	s.redisContainer = redisContainer

	pgConnStr, err := pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	redisEndpoint, err := redisContainer.Endpoint(s.ctx, "")
	require.NoError(s.T(), err)

	s.db, err = sql.Open("postgres", pgConnStr)
	require.NoError(s.T(), err)
	require.NoError(s.T(), RunMigrations(s.db, "postgres"))

	s.redisClient = redis.NewClient(&redis.Options{
		Addr: redisEndpoint,
	})

	s.data = &Data{db: s.db, rdb: s.redisClient, driver: "postgres"}
	s.cache = NewLinkCache(s.data, log.DefaultLogger)
	s.links = NewLinkRepo(s.data, s.cache, log.DefaultLogger)
	s.clicks = NewClickRepo(s.data, log.DefaultLogger)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(s.ctx)
	}
	if s.redisContainer != nil {
		s.redisContainer.Terminate(s.ctx)
	}
}

func (s *IntegrationTestSuite) TearDownTest() {
	_, err := s.db.Exec(`DELETE FROM click_events`)
	require.NoError(s.T(), err)
	_, err = s.db.Exec(`DELETE FROM outbox_messages`)
	require.NoError(s.T(), err)
	_, err = s.db.Exec(`DELETE FROM short_links`)
	require.NoError(s.T(), err)
	s.redisClient.FlushAll(s.ctx)
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) TestCreateAndFind() {
	// Arrange
	link := newLink("itg234", nil, domain.UnlimitedClicks)

	// Act
	err := s.links.Create(s.ctx, link)

	// Assert
	require.NoError(s.T(), err)
	assert.NotZero(s.T(), link.ID())

	found, err := s.links.FindByCode(s.ctx, "itg234")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), link.ID(), found.ID())
}

func (s *IntegrationTestSuite) TestCreateWithExpiration() {
	// Arrange
	expiresAt := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	link := newLink("itgexp", &expiresAt, domain.UnlimitedClicks)

	// Act
	err := s.links.Create(s.ctx, link)

	// Assert
	require.NoError(s.T(), err)
	found, err := s.links.FindByCode(s.ctx, "itgexp")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), found.ExpiresAt())
	assert.True(s.T(), expiresAt.Equal(*found.ExpiresAt()))
}

func (s *IntegrationTestSuite) TestCreateWritesOutbox() {
	// Arrange
	link := newLink("itgbox", nil, domain.UnlimitedClicks)

	// Act
	require.NoError(s.T(), s.links.Create(s.ctx, link))

	// Assert
	var count int
	require.NoError(s.T(), s.db.QueryRow(`SELECT COUNT(*) FROM outbox_messages`).Scan(&count))
	assert.Equal(s.T(), 1, count)
}

func (s *IntegrationTestSuite) TestFindProjection_UsesCache() {
	// Arrange
	link := newLink("itgchc", nil, domain.UnlimitedClicks)
	require.NoError(s.T(), s.links.Create(s.ctx, link))

	// Prime the cache
	proj, err := s.links.FindProjection(s.ctx, "itgchc")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), proj)

	// Delete from the store directly, bypassing the repository
	_, err = s.db.Exec(`DELETE FROM short_links WHERE code = $1`, "itgchc")
	require.NoError(s.T(), err)

	// Act - the cached projection still serves
	cached, err := s.links.FindProjection(s.ctx, "itgchc")

	// Assert
	require.NoError(s.T(), err)
	require.NotNil(s.T(), cached)
	assert.Equal(s.T(), proj.OriginalURL, cached.OriginalURL)
}

func (s *IntegrationTestSuite) TestIncrementClicks_ConditionalUpdate() {
	// Arrange
	link := newLink("itginc", nil, 2)
	require.NoError(s.T(), s.links.Create(s.ctx, link))
	now := time.Now().UTC()

	// Act & Assert
	for i := 0; i < 2; i++ {
		applied, err := s.links.IncrementClicks(s.ctx, "itginc", now)
		require.NoError(s.T(), err)
		assert.True(s.T(), applied)
	}

	applied, err := s.links.IncrementClicks(s.ctx, "itginc", now)
	require.NoError(s.T(), err)
	assert.False(s.T(), applied)

	proj, err := s.links.FindProjection(s.ctx, "itginc")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), proj.TotalClicks)
}

func (s *IntegrationTestSuite) TestIncrementClicks_ConcurrentStopsAtLimit() {
	// Arrange
	const clickLimit = 5
	const racers = 20
	link := newLink("itgrac", nil, clickLimit)
	require.NoError(s.T(), s.links.Create(s.ctx, link))
	now := time.Now().UTC()

	// Act - all racers attempt the conditional increment at once
	var applied atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := s.links.IncrementClicks(s.ctx, "itgrac", now)
			assert.NoError(s.T(), err)
			if ok {
				applied.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	// Assert - exactly clickLimit increments won, no lost updates, no overshoot
	assert.Equal(s.T(), int64(clickLimit), applied.Load())

	var total int64
	require.NoError(s.T(), s.db.QueryRow(`SELECT total_clicks FROM short_links WHERE code = $1`, "itgrac").Scan(&total))
	assert.Equal(s.T(), int64(clickLimit), total)
}

func (s *IntegrationTestSuite) TestIncrementClicks_InvalidatesCache() {
	// Arrange
	link := newLink("itginv", nil, domain.UnlimitedClicks)
	require.NoError(s.T(), s.links.Create(s.ctx, link))

	_, err := s.links.FindProjection(s.ctx, "itginv")
	require.NoError(s.T(), err)

	// Act
	applied, err := s.links.IncrementClicks(s.ctx, "itginv", time.Now().UTC())
	require.NoError(s.T(), err)
	require.True(s.T(), applied)

	// Assert - the next read reflects the increment
	proj, err := s.links.FindProjection(s.ctx, "itginv")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), proj.TotalClicks)
}

func (s *IntegrationTestSuite) TestDelete_InvalidatesCache() {
	// Arrange
	link := newLink("itgdel", nil, domain.UnlimitedClicks)
	require.NoError(s.T(), s.links.Create(s.ctx, link))

	_, err := s.links.FindProjection(s.ctx, "itgdel")
	require.NoError(s.T(), err)

	// Act
	require.NoError(s.T(), s.links.Delete(s.ctx, "itgdel"))

	// Assert
	proj, err := s.links.FindProjection(s.ctx, "itgdel")
	require.NoError(s.T(), err)
	assert.Nil(s.T(), proj)
}

func (s *IntegrationTestSuite) TestNextLinkID_Monotonic() {
	first, err := s.links.NextLinkID(s.ctx)
	require.NoError(s.T(), err)
	second, err := s.links.NextLinkID(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), first+1, second)
}

func (s *IntegrationTestSuite) TestClickAggregations() {
	// Arrange
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	for i, country := range []string{"US", "US", "DE"} {
		e := &domain.ClickEvent{
			LinkID:        42,
			ClickedAt:     day.Add(time.Duration(i) * time.Hour),
			Country:       country,
			DeviceType:    domain.DeviceDesktop,
			TrafficSource: domain.SourceDirect,
		}
		require.NoError(s.T(), s.clicks.Insert(s.ctx, e))
	}

	// Act
	counts, err := s.clicks.CountByCountry(s.ctx, 42, day, day.Add(24*time.Hour))
	require.NoError(s.T(), err)

	// Assert
	byValue := map[string]int64{}
	for _, c := range counts {
		byValue[c.Value] = c.Count
	}
	assert.Equal(s.T(), int64(2), byValue["US"])
	assert.Equal(s.T(), int64(1), byValue["DE"])

	buckets, err := s.clicks.DailyCounts(s.ctx, 42, day, day.Add(24*time.Hour))
	require.NoError(s.T(), err)
	require.Len(s.T(), buckets, 1)
	assert.Equal(s.T(), day, buckets[0].Bucket)
	assert.Equal(s.T(), int64(3), buckets[0].Count)
}
