// Package reaction is the application service in front of the mechanism
// engine. HTTP handlers, the CLI and the analysis worker all go through it.
package reaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/MechanismLab/internal/domain/mechanism"
	"github.com/turtacn/MechanismLab/internal/domain/notation"
	"github.com/turtacn/MechanismLab/internal/infrastructure/database/redis"
	"github.com/turtacn/MechanismLab/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

const (
	defaultL1Size      = 4096
	defaultTTL         = 24 * time.Hour
	defaultMaxBatch    = 100
	defaultParallelism = 8

	// MaxCurveSamples bounds the interpolation density of a profile curve.
	MaxCurveSamples = 200
)

// ErrAsyncUnavailable is returned by Submit when no event publisher is wired.
var ErrAsyncUnavailable = errors.New(errors.ErrCodeServiceUnavailable, "asynchronous analysis is not enabled")

// cacheNamespace hashes L2 keys. Keys are also prefixed with the weight
// tables version so entries computed with other tables can be purged.
var cacheNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mechlab/"+mechanism.TablesVersion))

// cacheVersionKey records the tables version the shared L2 cache was last
// written with.
const cacheVersionKey = "tables_version"

// Service defines the reaction analysis operations.
type Service interface {
	Parse(ctx context.Context, notation string) (*chem.MoleculeFeatures, error)
	Analyze(ctx context.Context, reactant, product string) (*chem.AnalysisResult, error)
	AnalyzeWithConditions(ctx context.Context, req chem.AnalyzeRequest) (*chem.AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, req chem.BatchAnalyzeRequest) (*chem.BatchAnalyzeResponse, error)
	Score(ctx context.Context, c chem.ConditionSet) (*chem.MechanismPrediction, error)
	Profile(ctx context.Context, req chem.ProfileRequest) (*chem.ProfileResponse, error)
	ProfileFromConditions(ctx context.Context, c chem.ConditionSet, samples int) (*chem.ProfileResponse, error)
	Submit(ctx context.Context, req chem.AnalyzeRequest) (*chem.AnalysisJob, error)
	SubmitBatch(ctx context.Context, req chem.BatchAnalyzeRequest) (*chem.BatchSubmitResponse, error)
	Tables() *chem.WeightTables
	Ready(ctx context.Context) error
	PurgeStaleCache(ctx context.Context) (int64, error)
}

// EventPublisher publishes an enveloped event. kafka.EventPublisher satisfies
// it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// BatchEventPublisher publishes several events in one write. When the
// configured publisher implements it, SubmitBatch uses it.
type BatchEventPublisher interface {
	PublishEvents(ctx context.Context, topic, eventType string, events []kafka.Event) ([]error, error)
}

// Option configures the service.
type Option func(*serviceImpl)

func WithLogger(l logging.Logger) Option {
	return func(s *serviceImpl) { s.logger = l }
}

func WithMetrics(m *prometheus.EngineMetrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

// WithCache sets the shared L2 cache. Without one only the in-process memo
// is used.
func WithCache(c redis.Cache) Option {
	return func(s *serviceImpl) { s.cache = c }
}

func WithL1Size(n int) Option {
	return func(s *serviceImpl) { s.l1Size = n }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *serviceImpl) { s.ttl = ttl }
}

func WithMaxBatchSize(n int) Option {
	return func(s *serviceImpl) { s.maxBatch = n }
}

func WithParallelism(n int) Option {
	return func(s *serviceImpl) { s.parallelism = n }
}

// WithPublisher enables Submit. Jobs go to requestTopic.
func WithPublisher(p EventPublisher, requestTopic string) Option {
	return func(s *serviceImpl) {
		s.publisher = p
		if requestTopic != "" {
			s.requestTopic = requestTopic
		}
	}
}

type serviceImpl struct {
	logger  logging.Logger
	metrics *prometheus.EngineMetrics

	memo   *lru.Cache[string, *chem.MoleculeFeatures]
	l1Size int
	cache  redis.Cache
	ttl    time.Duration
	group  singleflight.Group

	maxBatch    int
	parallelism int

	publisher    EventPublisher
	requestTopic string
}

// NewService creates the reaction service.
func NewService(opts ...Option) (Service, error) {
	s := &serviceImpl{
		l1Size:       defaultL1Size,
		ttl:          defaultTTL,
		maxBatch:     defaultMaxBatch,
		parallelism:  defaultParallelism,
		requestTopic: kafka.TopicAnalysisRequested,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	if s.metrics == nil {
		s.metrics = prometheus.NewNoopEngineMetrics()
	}
	if s.maxBatch <= 0 {
		s.maxBatch = defaultMaxBatch
	}
	if s.parallelism <= 0 {
		s.parallelism = defaultParallelism
	}
	if s.l1Size <= 0 {
		s.l1Size = defaultL1Size
	}

	memo, err := lru.New[string, *chem.MoleculeFeatures](s.l1Size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to create parse memo")
	}
	s.memo = memo
	return s, nil
}

// Parse returns the features of notation. Results are memoized on the
// normalized notation; callers always receive their own copy.
func (s *serviceImpl) Parse(ctx context.Context, raw string) (f *chem.MoleculeFeatures, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "parse", start, err) }()
	return s.parse(ctx, raw)
}

func (s *serviceImpl) parse(ctx context.Context, raw string) (*chem.MoleculeFeatures, error) {
	key := notation.Normalize(raw)
	if key == "" {
		return nil, notation.ErrEmptyInput
	}

	if f, ok := s.memo.Get(key); ok {
		s.metrics.ObserveCache("l1", "parse", true)
		cp := *f
		return &cp, nil
	}
	s.metrics.ObserveCache("l1", "parse", false)

	v, err, _ := s.group.Do("parse:"+key, func() (interface{}, error) {
		f, err := loadThrough(ctx, s, "parse", key, func() (*chem.MoleculeFeatures, error) {
			return notation.Parse(key)
		})
		if err != nil {
			return nil, err
		}
		s.memo.Add(key, f)
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*chem.MoleculeFeatures)
	return &cp, nil
}

func (s *serviceImpl) Analyze(ctx context.Context, reactant, product string) (*chem.AnalysisResult, error) {
	return s.AnalyzeWithConditions(ctx, chem.AnalyzeRequest{Reactant: reactant, Product: product})
}

// AnalyzeWithConditions classifies the pair and, when conditions are given,
// reconciles the structural mechanism with the condition scorer.
func (s *serviceImpl) AnalyzeWithConditions(ctx context.Context, req chem.AnalyzeRequest) (res *chem.AnalysisResult, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "analyze", start, err) }()

	if req.Conditions != nil {
		if err := req.Conditions.Validate(); err != nil {
			return nil, err
		}
	}
	before, err := s.parse(ctx, req.Reactant)
	if err != nil {
		return nil, sideError(err, "reactant")
	}
	after, err := s.parse(ctx, req.Product)
	if err != nil {
		return nil, sideError(err, "product")
	}

	key := before.Notation + "\x00" + after.Notation
	if req.Conditions != nil {
		key += "\x00" + req.Conditions.Key()
	}
	res, err = loadThrough(ctx, s, "analysis", key, func() (*chem.AnalysisResult, error) {
		return buildResult(before, after, req.Conditions), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAnalysisFailed, "reaction analysis failed")
	}
	res.ID = uuid.NewString()

	s.metrics.ClassificationsTotal.WithLabelValues(string(res.Analysis.Category), res.Analysis.Mechanism.String()).Inc()
	if res.Prediction != nil {
		s.metrics.PredictionsTotal.WithLabelValues(string(res.Prediction.Primary)).Inc()
	}
	s.logger.WithContext(ctx).Debug("reaction analyzed",
		logging.String("id", res.ID),
		logging.String("category", string(res.Analysis.Category)),
		logging.String("mechanism", res.Analysis.Mechanism.String()),
		logging.String("confidence", string(res.Analysis.Confidence)))
	return res, nil
}

func buildResult(before, after *chem.MoleculeFeatures, cond *chem.ConditionSet) *chem.AnalysisResult {
	a := mechanism.Classify(before, after)
	res := &chem.AnalysisResult{Analysis: a}

	substrate := before.Substitution.Substrate()
	lg := mechanism.InferLeavingGroup(before, after)
	if cond != nil {
		p := mechanism.Score(*cond)
		res.Prediction = p
		a.Mechanism = resolveMechanism(a.Mechanism, p)
		if a.Mechanism == p.Primary {
			a.Confidence = chem.ConfidenceHigh
		}
		substrate, lg = cond.Substrate, cond.LeavingGroup
	}

	res.Profile = mechanism.EstimateProfile(a.Mechanism, substrate, lg)
	res.Plot = mechanism.BuildPlot(res.Profile)
	return res
}

// resolveMechanism picks the candidate of an ambiguous label that the
// scorer ranks highest. Ties follow the scorer's own order.
func resolveMechanism(m chem.Mechanism, p *chem.MechanismPrediction) chem.Mechanism {
	cands := m.Candidates()
	if len(cands) < 2 {
		return m
	}
	best, bestPct := m, -1
	for _, sm := range chem.ScoredMechanisms() {
		if !containsMechanism(cands, sm) {
			continue
		}
		if pct := p.Percent(sm); pct > bestPct {
			best, bestPct = sm, pct
		}
	}
	return best
}

func containsMechanism(list []chem.Mechanism, m chem.Mechanism) bool {
	for _, v := range list {
		if v == m {
			return true
		}
	}
	return false
}

// AnalyzeBatch analyzes every item independently with bounded parallelism.
// Item failures are reported in place; the call itself fails only for an
// empty or oversized batch or a cancelled context.
func (s *serviceImpl) AnalyzeBatch(ctx context.Context, req chem.BatchAnalyzeRequest) (resp *chem.BatchAnalyzeResponse, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "batch", start, err) }()

	n := len(req.Items)
	if n == 0 {
		return nil, errors.InvalidParam("batch must contain at least one item")
	}
	if n > s.maxBatch {
		return nil, errors.Newf(errors.ErrCodeBatchTooLarge, "batch of %d items exceeds the limit of %d", n, s.maxBatch)
	}
	s.metrics.BatchSize.WithLabelValues().Observe(float64(n))

	items := make([]chem.BatchItem, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range req.Items {
		i := i
		g.Go(func() error {
			items[i].Index = i
			res, err := s.AnalyzeWithConditions(gctx, req.Items[i])
			if err != nil {
				items[i].Error = itemError(err)
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "batch analysis cancelled")
	}

	resp = &chem.BatchAnalyzeResponse{Items: items}
	for _, it := range items {
		if it.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	s.logger.WithContext(ctx).Info("batch analyzed",
		logging.Int("items", n),
		logging.Int("succeeded", resp.Succeeded),
		logging.Int("failed", resp.Failed))
	return resp, nil
}

// Score validates c and returns the scorer's distribution.
func (s *serviceImpl) Score(ctx context.Context, c chem.ConditionSet) (p *chem.MechanismPrediction, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "score", start, err) }()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	p, err = loadThrough(ctx, s, "score", c.Key(), func() (*chem.MechanismPrediction, error) {
		return mechanism.Score(c), nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PredictionsTotal.WithLabelValues(string(p.Primary)).Inc()
	return p, nil
}

// Profile estimates the energy profile of an explicit mechanism, or of the
// primary mechanism of req.Conditions when those are given.
func (s *serviceImpl) Profile(ctx context.Context, req chem.ProfileRequest) (*chem.ProfileResponse, error) {
	if req.Conditions != nil {
		return s.ProfileFromConditions(ctx, *req.Conditions, req.Samples)
	}

	var err error
	start := time.Now()
	defer func() { s.observe(ctx, "profile", start, err) }()

	if req.Mechanism.IsNone() {
		err = errors.InvalidParam("mechanism or conditions required")
		return nil, err
	}
	if err = checkSamples(req.Samples); err != nil {
		return nil, err
	}
	if req.Substrate != "" && !req.Substrate.IsValid() {
		err = errors.New(errors.ErrCodeInvalidCondition, "invalid substrate").WithDetail("value=" + string(req.Substrate))
		return nil, err
	}
	if req.LeavingGroup != "" && !req.LeavingGroup.IsValid() {
		err = errors.New(errors.ErrCodeInvalidCondition, "invalid leaving_group").WithDetail("value=" + string(req.LeavingGroup))
		return nil, err
	}

	return profileResponse(mechanism.EstimateProfile(req.Mechanism, req.Substrate, req.LeavingGroup), req.Samples), nil
}

func (s *serviceImpl) ProfileFromConditions(ctx context.Context, c chem.ConditionSet, samples int) (resp *chem.ProfileResponse, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "profile", start, err) }()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := checkSamples(samples); err != nil {
		return nil, err
	}
	return profileResponse(mechanism.EstimateFromConditions(c), samples), nil
}

func checkSamples(n int) error {
	if n < 0 || n > MaxCurveSamples {
		return errors.Newf(errors.ErrCodeValidation, "samples must be between 0 and %d", MaxCurveSamples)
	}
	return nil
}

func profileResponse(p *chem.EnergyProfile, samples int) *chem.ProfileResponse {
	resp := &chem.ProfileResponse{Profile: p, Plot: mechanism.BuildPlot(p)}
	if samples > 0 {
		resp.Curve = mechanism.Curve(p, samples)
	}
	return resp
}

// Submit queues an analysis for the worker and returns the job it created.
func (s *serviceImpl) Submit(ctx context.Context, req chem.AnalyzeRequest) (job *chem.AnalysisJob, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "submit", start, err) }()

	if s.publisher == nil {
		return nil, ErrAsyncUnavailable
	}
	if job, err = newJob(req); err != nil {
		return nil, err
	}
	if err := s.publisher.PublishEvent(ctx, s.requestTopic, job.ID, kafka.EventAnalysisRequested, job); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueue, "failed to submit analysis job")
	}
	s.logger.WithContext(ctx).Info("analysis job submitted", logging.String("job_id", job.ID))
	return job, nil
}

// SubmitBatch queues every valid item as its own job, in a single write when
// the publisher supports batches. Invalid items and items the broker rejects
// are reported in place; the call fails only for an empty or oversized batch
// or when nothing could be published.
func (s *serviceImpl) SubmitBatch(ctx context.Context, req chem.BatchAnalyzeRequest) (resp *chem.BatchSubmitResponse, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "submit_batch", start, err) }()

	if s.publisher == nil {
		return nil, ErrAsyncUnavailable
	}
	n := len(req.Items)
	if n == 0 {
		return nil, errors.InvalidParam("batch must contain at least one item")
	}
	if n > s.maxBatch {
		return nil, errors.Newf(errors.ErrCodeBatchTooLarge, "batch of %d items exceeds the limit of %d", n, s.maxBatch)
	}
	s.metrics.BatchSize.WithLabelValues().Observe(float64(n))

	resp = &chem.BatchSubmitResponse{Items: make([]chem.BatchSubmitItem, n)}
	var (
		queued []int
		events []kafka.Event
	)
	for i, item := range req.Items {
		resp.Items[i].Index = i
		job, jobErr := newJob(item)
		if jobErr != nil {
			resp.Items[i].Error = itemError(jobErr)
			continue
		}
		resp.Items[i].Job = job
		queued = append(queued, i)
		events = append(events, kafka.Event{Key: job.ID, Payload: job})
	}

	if len(events) > 0 {
		errs, pubErr := s.publishEvents(ctx, events)
		if pubErr != nil {
			return nil, errors.Wrap(pubErr, errors.ErrCodeMessageQueue, "failed to submit analysis jobs")
		}
		for k, i := range queued {
			if errs[k] != nil {
				resp.Items[i].Job = nil
				resp.Items[i].Error = itemError(errors.Wrap(errs[k], errors.ErrCodeMessageQueue, "failed to submit analysis job"))
			}
		}
	}

	for _, it := range resp.Items {
		if it.Error != nil {
			resp.Failed++
		} else {
			resp.Submitted++
		}
	}
	s.logger.WithContext(ctx).Info("analysis jobs submitted",
		logging.Int("items", n),
		logging.Int("submitted", resp.Submitted),
		logging.Int("failed", resp.Failed))
	return resp, nil
}

func (s *serviceImpl) publishEvents(ctx context.Context, events []kafka.Event) ([]error, error) {
	if bp, ok := s.publisher.(BatchEventPublisher); ok {
		return bp.PublishEvents(ctx, s.requestTopic, kafka.EventAnalysisRequested, events)
	}
	errs := make([]error, len(events))
	for i, ev := range events {
		errs[i] = s.publisher.PublishEvent(ctx, s.requestTopic, ev.Key, kafka.EventAnalysisRequested, ev.Payload)
	}
	return errs, nil
}

// newJob checks req up front so malformed jobs never reach the topic.
func newJob(req chem.AnalyzeRequest) (*chem.AnalysisJob, error) {
	if notation.Normalize(req.Reactant) == "" {
		return nil, notation.ErrEmptyInput.WithDetail("field=reactant")
	}
	if notation.Normalize(req.Product) == "" {
		return nil, notation.ErrEmptyInput.WithDetail("field=product")
	}
	if req.Conditions != nil {
		if err := req.Conditions.Validate(); err != nil {
			return nil, err
		}
	}
	return &chem.AnalysisJob{
		ID:         uuid.NewString(),
		Reactant:   req.Reactant,
		Product:    req.Product,
		Conditions: req.Conditions,
	}, nil
}

func (s *serviceImpl) Tables() *chem.WeightTables {
	return mechanism.Tables()
}

// Ready reports whether the L2 cache is reachable. A service without one is
// always ready.
func (s *serviceImpl) Ready(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "cache unavailable")
	}
	return nil
}

func (s *serviceImpl) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, time.Since(start).Seconds(), err)
	if err != nil {
		s.metrics.ErrorsTotal.WithLabelValues(string(errors.GetCode(err))).Inc()
		s.logger.WithContext(ctx).Debug("operation failed", logging.String("operation", op), logging.Err(err))
	}
}

// PurgeStaleCache deletes the L2 entries written under the previously
// recorded tables version, if it differs from the current one, and records
// the current version. It returns the number of entries removed. Without an
// L2 cache it does nothing.
func (s *serviceImpl) PurgeStaleCache(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	var previous string
	if err := s.cache.Get(ctx, cacheVersionKey, &previous); err != nil && !errors.Is(err, redis.ErrCacheMiss) {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read cache version")
	}

	var purged int64
	if previous != "" && previous != mechanism.TablesVersion {
		n, err := s.cache.DeleteByPrefix(ctx, previous+":")
		if err != nil {
			return n, errors.Wrap(err, errors.ErrCodeCacheError, "failed to purge stale cache entries").
				WithDetail("version=" + previous)
		}
		purged = n
		s.logger.WithContext(ctx).Info("purged stale cache entries",
			logging.String("previous_version", previous),
			logging.String("version", mechanism.TablesVersion),
			logging.Int64("entries", purged))
	}
	if err := s.cache.Set(ctx, cacheVersionKey, mechanism.TablesVersion, 0); err != nil {
		return purged, errors.Wrap(err, errors.ErrCodeCacheError, "failed to record cache version")
	}
	return purged, nil
}

// loadThrough reads key from the L2 cache or computes and stores it. The
// cache is never authoritative: any backend or decode failure recomputes.
func loadThrough[T any](ctx context.Context, s *serviceImpl, kind, key string, compute func() (*T, error)) (*T, error) {
	if s.cache == nil {
		return compute()
	}

	var (
		out     T
		loaded  bool
		loadErr error
	)
	err := s.cache.GetOrSet(ctx, cacheKey(kind, key), &out, s.ttl, func(context.Context) (interface{}, error) {
		loaded = true
		v, err := compute()
		loadErr = err
		return v, err
	})
	if loadErr != nil {
		return nil, loadErr
	}
	if err != nil {
		s.metrics.CacheErrorsTotal.WithLabelValues("l2", kind).Inc()
		s.logger.Warn("l2 cache failed, recomputing", logging.String("kind", kind), logging.Err(err))
		return compute()
	}
	s.metrics.ObserveCache("l2", kind, !loaded)
	return &out, nil
}

func cacheKey(kind, key string) string {
	return mechanism.TablesVersion + ":" + kind + ":" + uuid.NewSHA1(cacheNamespace, []byte(key)).String()
}

func sideError(err error, side string) error {
	var ae *errors.AppError
	if errors.As(err, &ae) {
		return ae.WithDetail("field=" + side)
	}
	return err
}

func itemError(err error) *chem.BatchItemError {
	return &chem.BatchItemError{Code: string(errors.GetCode(err)), Message: err.Error()}
}
