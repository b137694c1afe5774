package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/commonpool/artifact"
	"github.com/hupe1980/commonpool/artifact/index"
	"github.com/hupe1980/commonpool/artifact/s3"
	"github.com/hupe1980/commonpool/capability"
	"github.com/hupe1980/commonpool/config"
	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/logging"
	"github.com/hupe1980/commonpool/model"
	anthropicmodel "github.com/hupe1980/commonpool/model/anthropic"
	openaimodel "github.com/hupe1980/commonpool/model/openai"
)

func newLogger(cfg config.Logging, w io.Writer) *logging.SimLogger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.ParseLevel(cfg.Level),
		Format:    cfg.Format,
		Output:    w,
		Component: "cli",
	})
}

// newModel builds the configured backend. The API key is read once from
// the configured environment variable.
func newModel(ctx context.Context, cfg config.Model) (model.Model, error) {
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	switch cfg.Provider {
	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("%s is not set", cfg.APIKeyEnv)
		}
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			applyAnthropic(o, cfg)
			o.APIKey = apiKey
		}), nil
	case "bedrock":
		return anthropicmodel.NewBedrockModel(ctx, cfg.AWSRegion, func(o *anthropicmodel.Options) {
			applyAnthropic(o, cfg)
		}), nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("%s is not set", cfg.APIKeyEnv)
		}
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			o.APIKey = apiKey
		}), nil
	case "mock":
		return newMockModel(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func applyAnthropic(o *anthropicmodel.Options, cfg config.Model) {
	if cfg.Name != "" {
		o.Model = anthropic.Model(cfg.Name)
	}
	o.Temperature = cfg.Temperature
	o.MaxTokens = cfg.MaxTokens
}

// newMockModel answers offline runs: the facilitator suggests, responders
// accept, and the summary is fixed.
func newMockModel() *model.MockModel {
	m := model.NewMockModel("mock")
	m.AddResponse(`"recent_exchanges"`, "The offer looks balanced for both sides.")
	m.AddResponse(`"suggestion"`, "ACCEPT. This trade covers my need.")
	m.SetFallback("Offline run: participants traded toward their needs.")
	return m
}

func newCapability(m model.Model, cfg config.Capability, logger logging.Logger) *capability.ModelCapability {
	return capability.New(m, func(o *capability.Options) {
		o.Timeout = cfg.Timeout
		o.MaxCalls = cfg.MaxCalls
		o.Logger = logger
	})
}

// newStore wires the file store with its optional index and S3 mirror.
func newStore(ctx context.Context, cfg config.Output, logger logging.Logger) (*artifact.FileStore, func(), error) {
	closeFn := func() {}
	var indexer artifact.Indexer
	if cfg.IndexPath != "" {
		db, err := index.Open(cfg.IndexPath)
		if err != nil {
			return nil, closeFn, err
		}
		indexer = db
		closeFn = func() { _ = db.Close() }
	}
	var mirror artifact.Mirror
	if cfg.S3.Bucket != "" {
		m, err := newMirror(ctx, cfg.S3, logger)
		if err != nil {
			closeFn()
			return nil, func() {}, err
		}
		mirror = m
	}
	store := artifact.NewFileStore(cfg.Dir, func(o *artifact.FileStoreOptions) {
		o.Compress = cfg.Compress
		o.Validate = cfg.Validate
		o.Indexer = indexer
		o.Mirror = mirror
		o.Logger = logger
	})
	return store, closeFn, nil
}

// newReader serves listings from the index when one is configured and
// documents from the output directory.
func newReader(cfg config.Output, logger logging.Logger) (core.RecordReader, *index.DB, func(), error) {
	files := artifact.NewFileStore(cfg.Dir, func(o *artifact.FileStoreOptions) { o.Logger = logger })
	if cfg.IndexPath == "" {
		return files, nil, func() {}, nil
	}
	db, err := index.Open(cfg.IndexPath)
	if err != nil {
		return nil, nil, func() {}, err
	}
	return index.NewReader(db, files), db, func() { _ = db.Close() }, nil
}

func newMirror(ctx context.Context, cfg config.S3, logger logging.Logger) (*s3.Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("output.s3.bucket is not set")
	}
	return s3.New(ctx, s3.Config{
		Region:    cfg.Region,
		Bucket:    cfg.Bucket,
		Endpoint:  cfg.Endpoint,
		Prefix:    cfg.Prefix,
		PathStyle: cfg.PathStyle,
		Logger:    logger,
	})
}

// serveMetrics exposes reg on addr until the returned stop func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics.serve", "addr", addr, "error", err.Error())
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
