package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/registry"
	"github.com/sells-group/intake-cli/internal/store"
)

// Pipeline sequences collection, detection, verification, classification
// and composition for one complaint session. A single session runs strictly
// sequentially; independent sessions may run concurrently, each owning its
// own case.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	collector  *Collector
	detector   *Detector
	checker    *Checker
	classifier *Classifier
	composer   *Composer
}

// New wires the pipeline stages from configuration and reference data.
func New(
	cfg *config.Config,
	st store.Store,
	gen Generator,
	rules []registry.CompanyRule,
	dir *registry.Directory,
	table *registry.EscalationTable,
	protocols registry.ProtocolTable,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		collector:  NewCollector(NewExtractor(gen, rules), cfg.Intake.MaxQuestions),
		detector:   NewDetector(rules, cfg.Detect.ConfidenceThreshold),
		checker:    NewChecker(dir, cfg.Verify.MismatchThreshold),
		classifier: NewClassifier(table, cfg.Detect.ConfidenceThreshold),
		composer:   NewComposer(gen, protocols),
	}
}

// Run processes one session end to end. intake may be nil for a live
// dialogue; its fields pre-seed the case otherwise. The returned case
// carries the terminal result except when the session aborts or fails
// fatally, in which cases the error reports why.
func (p *Pipeline) Run(ctx context.Context, intake *model.Intake, src AnswerSource) (*model.Case, error) {
	c := model.NewCase()
	if intake != nil {
		c.MergeFields(intake.Fields())
	}
	if src == nil {
		src = NoAnswers{}
	}

	log := zap.L().With(zap.String("session_id", c.SessionID))
	log.Info("pipeline: session started")

	if _, err := p.store.CreateCase(ctx, c); err != nil {
		return nil, eris.Wrap(err, "pipeline: create case")
	}

	setStatus := func(status model.CaseStatus) {
		if statusErr := p.store.UpdateCaseStatus(ctx, c.SessionID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	trackPhase := func(name string, fn func() (model.TokenUsage, error)) error {
		phase, phaseErr := p.store.CreatePhase(ctx, c.SessionID, name)
		if phaseErr != nil {
			log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
		}

		start := time.Now()
		usage, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		phaseResult := &model.PhaseResult{Name: name, Duration: duration, TokenUsage: usage}
		if fnErr != nil {
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else {
			phaseResult.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
			)
		}

		if phase != nil {
			_ = p.store.CompletePhase(ctx, phase.ID, phaseResult)
		}
		return fnErr
	}

	// Phase 1: dialogue collection.
	setStatus(model.CaseStatusCollecting)
	if err := trackPhase("collect", func() (model.TokenUsage, error) {
		return p.collector.Collect(ctx, c, src)
	}); err != nil {
		if eris.Is(err, ErrAborted) {
			p.finishAborted(ctx, c, log)
		} else {
			p.finishError(ctx, c, err, log)
		}
		return c, err
	}

	// Phase 2: company detection.
	setStatus(model.CaseStatusDetecting)
	_ = trackPhase("detect", func() (model.TokenUsage, error) {
		det := p.detector.Detect(c.Fields, c.Transcript())
		c.Detection = &det
		log.Info("pipeline: company detected",
			zap.String("company", det.Company),
			zap.Float64("confidence", det.Confidence),
		)
		return model.TokenUsage{}, nil
	})

	// Phase 3: customer verification.
	setStatus(model.CaseStatusVerifying)
	_ = trackPhase("verify", func() (model.TokenUsage, error) {
		ver, unmatched := p.checker.Verify(c.Detection.Company, c.Fields, c.UnmatchedContacts)
		c.Verification = &ver
		c.UnmatchedContacts = unmatched
		log.Info("pipeline: verification complete",
			zap.Bool("matched", ver.Matched),
			zap.Bool("fraud_suspected", ver.FraudSuspected),
		)
		return model.TokenUsage{}, nil
	})

	// Phase 4: solvability classification. A configuration gap is fatal
	// for this session only.
	setStatus(model.CaseStatusClassifying)
	if err := trackPhase("classify", func() (model.TokenUsage, error) {
		decision, err := p.classifier.Classify(c)
		if err != nil {
			return model.TokenUsage{}, err
		}
		c.Decision = &decision
		log.Info("pipeline: classified",
			zap.Bool("resolvable", decision.Resolvable),
			zap.String("reason", decision.Reason),
		)
		return model.TokenUsage{}, nil
	}); err != nil {
		p.finishError(ctx, c, err, log)
		return c, err
	}

	// Phase 5: result composition.
	setStatus(model.CaseStatusComposing)
	_ = trackPhase("compose", func() (model.TokenUsage, error) {
		result, usage := p.composer.Compose(ctx, c)
		c.Result = &result
		return usage, nil
	})

	final := model.CaseStatusResolved
	if c.Result.Status == model.ResultEscalated {
		final = model.CaseStatusEscalated
	}
	if err := p.store.SaveCase(ctx, c, final); err != nil {
		log.Warn("pipeline: failed to archive case", zap.Error(err))
	}

	log.Info("pipeline: session finished",
		zap.String("status", string(c.Result.Status)),
		zap.String("category", c.Result.Category),
		zap.String("priority", string(c.Result.Priority)),
	)
	return c, nil
}

// finishAborted records an incomplete session. No result is attached.
func (p *Pipeline) finishAborted(ctx context.Context, c *model.Case, log *zap.Logger) {
	log.Warn("pipeline: session aborted", zap.Int("turns", len(c.Turns)))
	if err := p.store.SaveCase(context.WithoutCancel(ctx), c, model.CaseStatusAborted); err != nil {
		log.Warn("pipeline: failed to save aborted case", zap.Error(err))
	}
}

// finishError attaches an explicit error result and archives the case.
func (p *Pipeline) finishError(ctx context.Context, c *model.Case, cause error, log *zap.Logger) {
	category := defaultCategory
	if cat := model.NormalizeCompany(c.Field(model.FieldCategory)); cat != "" {
		category = cat
	}
	c.Result = &model.Result{
		Status:   model.ResultError,
		CaseID:   c.SessionID,
		Category: category,
		Priority: model.PriorityFromUrgency(c.Field(model.FieldUrgency)),
		Message:  "This case could not be processed and requires manual review.",
		Error:    cause.Error(),
	}
	if err := p.store.SaveCase(ctx, c, model.CaseStatusError); err != nil {
		log.Warn("pipeline: failed to save errored case", zap.Error(err))
	}
}

// BatchOutcome pairs one batch intake with its processed case.
type BatchOutcome struct {
	Index int
	Case  *model.Case
	Err   error
}

// RunBatch processes independent intakes concurrently, bounded by the batch
// concurrency limit. A failed session never stops the rest of the batch.
func (p *Pipeline) RunBatch(ctx context.Context, intakes []model.Intake) []BatchOutcome {
	limit := p.cfg.Batch.MaxConcurrentSessions
	if limit <= 0 {
		limit = 5
	}

	outcomes := make([]BatchOutcome, len(intakes))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range intakes {
		g.Go(func() error {
			c, err := p.Run(gCtx, &intakes[i], NoAnswers{})
			outcomes[i] = BatchOutcome{Index: i, Case: c, Err: err}
			if err != nil {
				zap.L().Error("batch: session failed",
					zap.Int("index", i),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}
