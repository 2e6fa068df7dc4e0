package main

import (
	"time"

	"shortlink/internal/biz"
	"shortlink/internal/conf"
	"shortlink/internal/domain"
	"shortlink/internal/enrichment"
	"shortlink/internal/ingest"

	"github.com/go-kratos/kratos/v2/log"
)

func provideShortenerConfig(c *conf.Shortener) biz.ShortenerConfig {
	if c == nil {
		return biz.ShortenerConfig{}
	}
	return biz.ShortenerConfig{
		MinCodeLength:           c.MinCodeLength,
		ExpectedURLs:            c.ExpectedURLs,
		MaxCollisionProbability: c.MaxCollisionProbability,
		CustomCodeMinLength:     c.CustomCodeMinLength,
		CustomCodeMaxLength:     c.CustomCodeMaxLength,
		ReservedWords:           c.ReservedWords,
		BaseURL:                 c.BaseURL,
	}
}

func provideRetentionConfig(c *conf.Retention) biz.RetentionConfig {
	if c == nil {
		return biz.RetentionConfig{}
	}
	return biz.RetentionConfig{
		Days:     c.Days,
		Interval: time.Duration(c.IntervalSeconds) * time.Second,
	}
}

// provideGeolocator opens the configured GeoIP database, falling back to a
// noop locator when no path is set.
func provideGeolocator(c *conf.Geoip, logger log.Logger) (enrichment.Geolocator, func(), error) {
	helper := log.NewHelper(logger)
	if c == nil || c.DatabasePath == "" {
		helper.Info("no geoip database configured, geo enrichment disabled")
		return enrichment.NoopLocator{}, func() {}, nil
	}
	loc, err := enrichment.NewGeoIP2Locator(c.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := loc.Close(); err != nil {
			helper.Errorf("failed to close geoip database: %v", err)
		}
	}
	return loc, cleanup, nil
}

func providePipeline(c *conf.Ingest, clicks domain.ClickRepository, geo enrichment.Geolocator, logger log.Logger) *ingest.Pipeline {
	var queueSize, workers int
	if c != nil {
		queueSize = c.QueueSize
		workers = c.Workers
	}
	return ingest.NewPipeline(queueSize, workers, clicks, geo, logger)
}
