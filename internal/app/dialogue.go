package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/targetzero/coursebot/internal/catalog"
	"github.com/targetzero/coursebot/internal/config"
	"github.com/targetzero/coursebot/internal/data"
	"github.com/targetzero/coursebot/internal/dialogue"
	domerrors "github.com/targetzero/coursebot/internal/errors"
	"github.com/targetzero/coursebot/internal/genai"
	"github.com/targetzero/coursebot/internal/logger"
	"github.com/targetzero/coursebot/internal/metrics"
	"github.com/targetzero/coursebot/internal/r2client"
	"github.com/targetzero/coursebot/internal/synonym"
)

// Course-code sources, in order of preference.
const (
	CodesFromR2       = "r2"
	CodesFromFile     = "file"
	CodesFromEmbedded = "embedded"
)

// LoadCodes returns the course-code catalog and where it came from. An R2
// object wins when R2 is configured and the object is readable, then the
// codes file, then the catalog built into the binary.
func LoadCodes(ctx context.Context, cfg *config.Config, log *logger.Logger) (*data.Catalog, string, error) {
	if cfg.R2Enabled() {
		cat, err := loadR2Codes(ctx, cfg, log)
		if err == nil {
			return cat, CodesFromR2, nil
		}
		if errors.Is(err, domerrors.ErrNotFound) {
			log.WithField("key", cfg.R2CodesKey).Warn("Course codes not in R2, using fallback")
		} else {
			log.WithError(err).Error("Failed to load course codes from R2, using fallback")
		}
	}

	if cfg.CodesFile != "" {
		cat, err := data.LoadFile(cfg.CodesFile)
		if err != nil {
			return nil, "", fmt.Errorf("codes file: %w", err)
		}
		return cat, CodesFromFile, nil
	}

	cat, err := data.Default()
	if err != nil {
		return nil, "", fmt.Errorf("embedded codes: %w", err)
	}
	return cat, CodesFromEmbedded, nil
}

func loadR2Codes(ctx context.Context, cfg *config.Config, log *logger.Logger) (*data.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, config.CatalogRequest)
	defer cancel()

	store, err := NewCodeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cat, etag, err := store.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	log.WithField("key", cfg.R2CodesKey).WithField("etag", etag).Info("Course codes loaded from R2")
	return cat, nil
}

// NewCodeStore binds to the course-code object in the configured bucket.
func NewCodeStore(ctx context.Context, cfg *config.Config) (*r2client.Store, error) {
	if !cfg.R2Enabled() {
		return nil, errors.New("r2 is not configured")
	}
	return r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2Endpoint(),
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2BucketName,
		Key:         cfg.R2CodesKey,
	})
}

// Dialogue is a controller together with the collaborators it owns.
type Dialogue struct {
	Controller  *dialogue.Controller
	Resolver    *synonym.Resolver
	Codes       *data.Catalog
	CodesSource string
	Catalog     *catalog.CachedSource
	CacheStore  string
	// Model is nil when no provider has credentials.
	Model genai.Model

	redis *redis.Client
}

// NewDialogue builds the course-code resolver, the cached catalog source and
// the model chain, then a controller over them. Missing model credentials
// are logged, not returned: every turn then fails with
// ErrMissingCredentials and the transports report it.
func NewDialogue(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics,
	observer func(context.Context, dialogue.Event),
) (*Dialogue, error) {
	codes, source, err := LoadCodes(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	table, err := synonym.NewTable(codes)
	if err != nil {
		return nil, fmt.Errorf("synonyms: %w", err)
	}
	log.WithField("source", source).WithField("codes", table.Len()).Info("Course codes ready")

	d := &Dialogue{
		Resolver:    synonym.NewResolver(table),
		Codes:       codes,
		CodesSource: source,
	}

	var store catalog.Store = catalog.NewMemoryStore()
	if cfg.RedisURL != "" {
		client, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, caching the catalog in process")
		} else {
			d.redis = client
			store = catalog.NewRedisStore(client)
		}
	}
	d.CacheStore = store.Name()

	client := catalog.NewClient(cfg.CatalogURL, cfg.CatalogTimeout, cfg.CatalogMaxRetries, m)
	d.Catalog = catalog.NewCachedSource(client, store, cfg.CatalogCacheTTL, m, log)

	d.Model, err = genai.NewModel(ctx, cfg.LLM, m)
	switch {
	case errors.Is(err, domerrors.ErrMissingCredentials):
		log.Warn("No model provider has an API key; every turn will report missing credentials")
	case err != nil:
		_ = d.Close()
		return nil, fmt.Errorf("model: %w", err)
	default:
		providers := cfg.LLM.ConfiguredProviders()
		names := make([]string, len(providers))
		for i, p := range providers {
			names[i] = p.String()
		}
		log.WithField("providers", names).Info("Model chain ready")
	}

	d.Controller = dialogue.NewController(dialogue.Config{
		Resolver:      d.Resolver,
		Model:         d.Model,
		Source:        d.Catalog,
		Logger:        log,
		Metrics:       m,
		Observer:      observer,
		HistoryWindow: cfg.HistoryWindow,
		MaxResults:    cfg.MaxResults,
	})
	return d, nil
}

// Close releases the model and the redis connection.
func (d *Dialogue) Close() error {
	var errs []error
	if d.Model != nil {
		errs = append(errs, d.Model.Close())
	}
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	return errors.Join(errs...)
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, config.CatalogRequest)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
