package server

import (
	"net"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"shortlink/internal/conf"
	"shortlink/internal/domain"
	"shortlink/internal/service"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// NewHTTPServer builds the HTTP server: the public redirect surface at the
// root plus the JSON administration API under /api/v1.
func NewHTTPServer(
	c *conf.Server,
	resolver *service.ResolverService,
	shortener *service.ShortenerService,
	analytics *service.AnalyticsService,
	logger log.Logger,
) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.HTTP.Network != "" {
		opts = append(opts, http.Network(c.HTTP.Network))
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, http.Address(c.HTTP.Addr))
	}
	if c.HTTP.TimeoutSeconds > 0 {
		opts = append(opts, http.Timeout(time.Duration(c.HTTP.TimeoutSeconds)*time.Second))
	}
	srv := http.NewServer(opts...)

	registerRedirectRoutes(srv, resolver)
	registerAPIRoutes(srv, shortener, analytics)

	return srv
}

func registerRedirectRoutes(srv *http.Server, resolver *service.ResolverService) {
	root := srv.Route("/")

	root.GET("/{code}", func(ctx http.Context) error {
		req := resolveRequestOf(ctx)

		reply, err := resolver.Resolve(ctx, req)
		if err != nil {
			return err
		}
		if reply.PasswordRequired {
			return ctx.Result(nethttp.StatusUnauthorized, reply)
		}

		nethttp.Redirect(ctx.Response(), ctx.Request(), reply.TargetURL, nethttp.StatusFound)
		return nil
	})

	root.POST("/{code}/verify", func(ctx http.Context) error {
		req := resolveRequestOf(ctx)

		var body struct {
			Password string `json:"password"`
		}
		if err := ctx.Bind(&body); err != nil {
			return kerrors.BadRequest("INVALID_BODY", "malformed request body")
		}
		req.Password = body.Password

		reply, err := resolver.VerifyPassword(ctx, req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})
}

func registerAPIRoutes(srv *http.Server, shortener *service.ShortenerService, analytics *service.AnalyticsService) {
	api := srv.Route("/api/v1")

	api.POST("/links", func(ctx http.Context) error {
		var req service.CreateLinkRequest
		if err := ctx.Bind(&req); err != nil {
			return kerrors.BadRequest("INVALID_BODY", "malformed request body")
		}
		reply, err := shortener.CreateLink(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusCreated, reply)
	})

	api.GET("/links", func(ctx http.Context) error {
		page, pageSize := pagination(ctx)
		reply, err := shortener.ListLinks(ctx, page, pageSize)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	api.GET("/links/{code}", func(ctx http.Context) error {
		reply, err := shortener.GetLink(ctx, ctx.Vars().Get("code"))
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	api.PATCH("/links/{code}", func(ctx http.Context) error {
		var req service.UpdateLinkRequest
		if err := ctx.Bind(&req); err != nil {
			return kerrors.BadRequest("INVALID_BODY", "malformed request body")
		}
		reply, err := shortener.UpdateLink(ctx, ctx.Vars().Get("code"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	api.DELETE("/links/{code}", func(ctx http.Context) error {
		if err := shortener.DeleteLink(ctx, ctx.Vars().Get("code")); err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusNoContent, nil)
	})

	api.GET("/links/{code}/stats", func(ctx http.Context) error {
		rng, err := dateRange(ctx)
		if err != nil {
			return err
		}
		reply, err := analytics.Stats(ctx, ctx.Vars().Get("code"), rng)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	api.GET("/links/{code}/stats/daily", func(ctx http.Context) error {
		start, err := parseTime(ctx.Query().Get("start"), false)
		if err != nil {
			return kerrors.BadRequest("INVALID_RANGE", "start must be RFC3339 or YYYY-MM-DD")
		}
		end, err := parseTime(ctx.Query().Get("end"), true)
		if err != nil {
			return kerrors.BadRequest("INVALID_RANGE", "end must be RFC3339 or YYYY-MM-DD")
		}
		reply, err := analytics.Daily(ctx, ctx.Vars().Get("code"), start, end)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	api.GET("/links/{code}/stats/hourly", func(ctx http.Context) error {
		date, err := parseTime(ctx.Query().Get("date"), false)
		if err != nil {
			return kerrors.BadRequest("INVALID_DATE", "date must be RFC3339 or YYYY-MM-DD")
		}
		reply, err := analytics.Hourly(ctx, ctx.Vars().Get("code"), date)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	api.GET("/links/{code}/clicks/recent", func(ctx http.Context) error {
		count, err := strconv.Atoi(ctx.Query().Get("count"))
		if err != nil {
			count = 10
		}
		reply, err := analytics.Recent(ctx, ctx.Vars().Get("code"), count)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	api.GET("/links/{code}/clicks", func(ctx http.Context) error {
		rng, err := dateRange(ctx)
		if err != nil {
			return err
		}
		page, pageSize := pagination(ctx)
		reply, err := analytics.ListClicks(ctx, ctx.Vars().Get("code"), rng, page, pageSize)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})

	api.POST("/retention/cleanup", func(ctx http.Context) error {
		var req struct {
			Days int `json:"days"`
		}
		if err := ctx.Bind(&req); err != nil {
			return kerrors.BadRequest("INVALID_BODY", "malformed request body")
		}
		if req.Days < 1 {
			return kerrors.BadRequest("INVALID_RETENTION", "days must be >= 1")
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -req.Days)
		reply, err := analytics.Cleanup(ctx, cutoff)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})
}

// resolveRequestOf extracts the tracking fields the ingestion pipeline
// works with from the incoming request.
func resolveRequestOf(ctx http.Context) *service.ResolveRequest {
	r := ctx.Request()
	q := r.URL.Query()

	return &service.ResolveRequest{
		Code:      ctx.Vars().Get("code"),
		IPAddress: clientIP(r),
		SessionID: sessionID(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		UTM: domain.UTM{
			Source:   q.Get("utm_source"),
			Medium:   q.Get("utm_medium"),
			Campaign: q.Get("utm_campaign"),
			Term:     q.Get("utm_term"),
			Content:  q.Get("utm_content"),
		},
	}
}

func clientIP(r *nethttp.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sessionID(r *nethttp.Request) string {
	if cookie, err := r.Cookie("sid"); err == nil {
		return cookie.Value
	}
	return r.Header.Get("X-Session-ID")
}

func pagination(ctx http.Context) (int, int) {
	page, err := strconv.Atoi(ctx.Query().Get("page"))
	if err != nil {
		page = 1
	}
	pageSize, err := strconv.Atoi(ctx.Query().Get("page_size"))
	if err != nil {
		pageSize = 20
	}
	return page, pageSize
}

// dateRange reads the optional start/end query parameters. Both absent
// means no range; exactly one present is rejected.
func dateRange(ctx http.Context) (*domain.DateRange, error) {
	startRaw, endRaw := ctx.Query().Get("start"), ctx.Query().Get("end")
	if startRaw == "" && endRaw == "" {
		return nil, nil
	}
	if startRaw == "" || endRaw == "" {
		return nil, kerrors.BadRequest("INVALID_RANGE", "start and end must be given together")
	}

	start, err := parseTime(startRaw, false)
	if err != nil {
		return nil, kerrors.BadRequest("INVALID_RANGE", "start must be RFC3339 or YYYY-MM-DD")
	}
	end, err := parseTime(endRaw, true)
	if err != nil {
		return nil, kerrors.BadRequest("INVALID_RANGE", "end must be RFC3339 or YYYY-MM-DD")
	}
	return &domain.DateRange{Start: start, End: end}, nil
}

// parseTime accepts RFC3339 timestamps or bare dates. A bare date used as
// a range end expands to the last second of that day, keeping the range
// inclusive.
func parseTime(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t.UTC(), nil
}
