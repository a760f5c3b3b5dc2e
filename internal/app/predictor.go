package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/samvad-hq/samvad-vision-predictor/internal/config"
	"github.com/samvad-hq/samvad-vision-predictor/internal/customvision"
	"github.com/samvad-hq/samvad-vision-predictor/internal/domain"
	"github.com/samvad-hq/samvad-vision-predictor/internal/imagesource"
	"github.com/samvad-hq/samvad-vision-predictor/internal/logger"
	"github.com/samvad-hq/samvad-vision-predictor/internal/storage"
	"github.com/samvad-hq/samvad-vision-predictor/pkg/httpclient"
	"github.com/samvad-hq/samvad-vision-predictor/pkg/publishers"
)

// Predictor runs a single Custom Vision prediction: it resolves the image,
// issues the request, prints the raw response and hands the result to the
// history store and publishers.
type Predictor struct {
	cfg      *config.Config
	target   customvision.Target
	executor *customvision.Executor
	resolver *imagesource.Resolver
	store    storage.Store
	fanout   *publishers.Fanout
	out      io.Writer
	log      logger.Logger
}

// Option customizes a Predictor.
type Option func(*options)

type options struct {
	client httpclient.Client
	out    io.Writer
}

// WithHTTPClient replaces the resty transport built from config.
func WithHTTPClient(c httpclient.Client) Option {
	return func(o *options) { o.client = c }
}

// WithOutput sets where the raw response body is written (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// NewPredictor builds the prediction runtime from config.
func NewPredictor(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Predictor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = httpclient.NewRestyClient(cfg.RequestTimeout)
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		RecordTTL:       cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.DebugObj("storage initialized", "storage_config", map[string]any{
		"type":               cfg.StorageType,
		"path":               cfg.BBoltPath,
		"record_ttl_seconds": int(cfg.StorageTTL.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	p := &Predictor{
		cfg: cfg,
		target: customvision.Target{
			Host:          cfg.PredictionHost,
			ProjectID:     cfg.ProjectID,
			IterationID:   cfg.IterationID,
			PredictionKey: cfg.PredictionKey,
		},
		executor: customvision.NewExecutor(o.client),
		store:    store,
		fanout:   fanout,
		out:      o.out,
		log:      log,
	}
	if cfg.ImageURL == "" && cfg.PageURL != "" {
		p.resolver = imagesource.NewResolver(o.client)
	}
	return p, nil
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run performs the prediction. Errors from the prediction call are returned
// unchanged in kind (ConnectivityError, APIError, MalformedPayloadError);
// history and publishing failures are logged only.
func (p *Predictor) Run(ctx context.Context) error {
	if p == nil || p.executor == nil {
		return fmt.Errorf("predictor is not initialized")
	}

	imageURL, err := p.imageURL(ctx)
	if err != nil {
		return err
	}

	req, err := customvision.NewPredictionRequest(p.target, imageURL)
	if err != nil {
		return fmt.Errorf("build prediction request: %w", err)
	}

	start := time.Now()
	p.log.InfoObj("prediction started", "prediction_request", map[string]any{
		"host":      req.Host,
		"path":      req.Path,
		"image_url": imageURL,
	})

	result, resp, err := p.executor.Predict(ctx, req)
	if err != nil {
		meta := map[string]any{
			"error":      err.Error(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		}
		if resp != nil {
			meta["status"] = resp.StatusCode
		}
		p.log.ErrorObj("prediction failed", "prediction_error", meta)
		return fmt.Errorf("predict: %w", err)
	}

	if err := p.writeBody(resp.Body); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	summary := map[string]any{
		"status":            resp.StatusCode,
		"predictions_count": len(result.Predictions),
		"elapsed_ms":        time.Since(start).Milliseconds(),
	}
	top, hasTop := result.Top()
	if hasTop {
		summary["top_tag"] = top.TagName
		summary["top_probability"] = top.Probability
		summary["leading_tags"] = leadingTags(*result, summaryTagCount)
	}
	p.log.InfoObj("prediction completed", "prediction_result", summary)

	p.recordHistory(imageURL, top, hasTop)
	p.publish(ctx, imageURL, resp.StatusCode, *result)
	return nil
}

// summaryTagCount bounds the ranked tags included in the completion log.
const summaryTagCount = 3

// leadingTags returns the n most probable tags as name/probability pairs.
func leadingTags(result domain.PredictionResult, n int) []map[string]any {
	ranked := result.Ranked()
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]map[string]any, 0, len(ranked))
	for _, p := range ranked {
		out = append(out, map[string]any{"tag": p.TagName, "probability": p.Probability})
	}
	return out
}

// Close releases the history store and publishers.
func (p *Predictor) Close() error {
	if p == nil {
		return nil
	}
	var firstErr error
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.log.ErrorObj("storage close failed", "error", err)
			firstErr = err
		}
	}
	if err := p.fanout.Close(); err != nil {
		p.log.ErrorObj("publishers close failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Predictor) imageURL(ctx context.Context) (string, error) {
	if p.cfg.ImageURL != "" {
		return p.cfg.ImageURL, nil
	}
	if p.resolver == nil {
		return "", fmt.Errorf("no image url configured")
	}
	img, err := p.resolver.Resolve(ctx, p.cfg.PageURL)
	if err != nil {
		return "", fmt.Errorf("resolve image from page: %w", err)
	}
	p.log.InfoObj("image resolved from page", "image_source", map[string]any{
		"page_url":  p.cfg.PageURL,
		"image_url": img,
	})
	return img, nil
}

func (p *Predictor) writeBody(body []byte) error {
	if _, err := p.out.Write(body); err != nil {
		return err
	}
	if len(body) == 0 || body[len(body)-1] != '\n' {
		_, err := io.WriteString(p.out, "\n")
		return err
	}
	return nil
}

func (p *Predictor) recordHistory(imageURL string, top domain.Prediction, hasTop bool) {
	id := storage.RecordID(p.cfg.ProjectID, p.cfg.IterationID, imageURL)

	prev, found, err := p.store.Lookup(id)
	if err != nil {
		p.log.ErrorObj("prediction history lookup failed", "error", err)
	} else if found && hasTop && prev.TopTag != top.TagName {
		p.log.WarnObj("top tag changed since last prediction", "prediction_drift", map[string]any{
			"image_url":           imageURL,
			"previous_tag":        prev.TopTag,
			"previous_at":         prev.PredictedAt,
			"current_tag":         top.TagName,
			"current_probability": top.Probability,
		})
	}

	rec := domain.PredictionRecord{
		ID:          id,
		ImageURL:    imageURL,
		ProjectID:   p.cfg.ProjectID,
		IterationID: p.cfg.IterationID,
		PredictedAt: time.Now().UTC(),
	}
	if hasTop {
		rec.TopTag = top.TagName
		rec.TopProbability = top.Probability
	}
	if err := p.store.Record(rec); err != nil {
		p.log.ErrorObj("prediction history write failed", "error", err)
	}
}

func (p *Predictor) publish(ctx context.Context, imageURL string, status int, result domain.PredictionResult) {
	if p.fanout.Size() == 0 {
		return
	}
	evt := publishers.NewEvent(p.cfg.ProjectID, p.cfg.IterationID, imageURL, status, result)
	delivered, err := p.fanout.Publish(ctx, evt)
	if err != nil {
		p.log.ErrorObj("prediction publish failed", "publish_error", map[string]any{
			"delivered": delivered,
			"error":     err.Error(),
		})
		return
	}
	p.log.InfoObj("prediction published", "publish_meta", map[string]any{
		"delivered": delivered,
	})
}
