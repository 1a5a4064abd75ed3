package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"alfredoptarigan/cv-matcher/internal/matching"
	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/progress"
	"alfredoptarigan/cv-matcher/internal/repositories"
)

// AnalyzerService orchestrates the matching pipeline for one analysis:
// ATS check and extraction fan out first, then category embeddings, then
// the alignment matrix and scores, the completeness gate, conditional
// ablation, and finally recommendation ranking and persistence.
type AnalyzerService interface {
	ValidateInput(cvText, jobText string) error
	RunAnalysis(ctx context.Context, analysisID uuid.UUID) error
}

type analyzerService struct {
	analysisRepo    repositories.AnalysisRepository
	extraction      *ExtractionService
	embeddings      EmbeddingService
	vectorStore     VectorStoreService
	tracker         *progress.Tracker
	logger          *zap.Logger
	providerTimeout time.Duration
	minCVLength     int
	minJobLength    int
}

func NewAnalyzerService(
	analysisRepo repositories.AnalysisRepository,
	extraction *ExtractionService,
	embeddings EmbeddingService,
	vectorStore VectorStoreService,
	tracker *progress.Tracker,
	logger *zap.Logger,
	providerTimeout time.Duration,
	minCVLength, minJobLength int,
) AnalyzerService {
	return &analyzerService{
		analysisRepo:    analysisRepo,
		extraction:      extraction,
		embeddings:      embeddings,
		vectorStore:     vectorStore,
		tracker:         tracker,
		logger:          logger,
		providerTimeout: providerTimeout,
		minCVLength:     minCVLength,
		minJobLength:    minJobLength,
	}
}

// ValidateInput implements AnalyzerService. It rejects undersized inputs
// before any provider call is made.
func (a *analyzerService) ValidateInput(cvText, jobText string) error {
	if len(strings.TrimSpace(cvText)) < a.minCVLength {
		return fmt.Errorf("%w: cv text must be at least %d characters", ErrInvalidInput, a.minCVLength)
	}
	if len(strings.TrimSpace(jobText)) < a.minJobLength {
		return fmt.Errorf("%w: job description must be at least %d characters", ErrInvalidInput, a.minJobLength)
	}
	return nil
}

// RunAnalysis implements AnalyzerService. A failure in any required stage
// marks the record failed with a generic user-facing message while the
// detailed cause stays in the logs; no partially completed record is ever
// persisted.
func (a *analyzerService) RunAnalysis(ctx context.Context, analysisID uuid.UUID) error {
	started := time.Now()
	id := analysisID.String()

	analysis, err := a.analysisRepo.FindByID(analysisID)
	if err != nil {
		return fmt.Errorf("failed to load analysis: %w", err)
	}

	if err := a.analysisRepo.UpdateStatus(analysisID, models.StatusProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	a.logger.Info("🔄 starting analysis", zap.String("analysis_id", id))

	// The entry normally exists since enqueue time; Ensure only covers jobs
	// recovered by the pending-jobs poller after a restart.
	a.tracker.Ensure(id)
	a.tracker.Advance(id, progress.StepUpload, nil)
	a.tracker.Complete(id, progress.StepUpload, nil)

	// Stage 1: ATS check in parallel with section/keyword extraction for
	// both documents.
	var (
		atsReport               matching.ATSReport
		cvSections, jobSections ParsedSections
		cvKeywords, jobKeywords matching.KeywordSet
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		atsReport = matching.CheckATS(analysis.CVText)
		a.tracker.Complete(id, progress.StepATS, map[string]any{"score": atsReport.Score})
		return nil
	})
	g.Go(func() error {
		sections, keywords, err := a.extractWithTimeout(gctx, "cv", analysis.CVText)
		if err != nil {
			return err
		}
		cvSections, cvKeywords = sections, keywords
		return nil
	})
	g.Go(func() error {
		sections, keywords, err := a.extractWithTimeout(gctx, "job", analysis.JobText)
		if err != nil {
			return err
		}
		jobSections, jobKeywords = sections, keywords
		return nil
	})
	if err := g.Wait(); err != nil {
		return a.fail(analysisID, err, "Document analysis failed. Please try again.")
	}

	a.tracker.Complete(id, progress.StepParsing, nil)
	a.tracker.Complete(id, progress.StepKeywords, map[string]any{
		"cv_keywords":  cvKeywords.Count(),
		"job_keywords": jobKeywords.Count(),
	})

	// Stage 2: group and full-document embeddings, CV and job sides
	// concurrently. Scoring never starts before both sides resolve.
	var cvBundle, jobBundle *matching.EmbeddingBundle

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		bundle, err := a.buildBundleWithTimeout(gctx, analysis.CVText, cvSections, cvKeywords)
		if err != nil {
			return err
		}
		cvBundle = bundle
		return nil
	})
	g.Go(func() error {
		bundle, err := a.buildBundleWithTimeout(gctx, analysis.JobText, jobSections, jobKeywords)
		if err != nil {
			return err
		}
		jobBundle = bundle
		return nil
	})
	if err := g.Wait(); err != nil {
		return a.fail(analysisID, err, "Semantic analysis is temporarily unavailable. Please try again.")
	}

	a.tracker.Complete(id, progress.StepEmbeddings, nil)

	// Stage 3: alignment matrix and calibrated scores.
	matrix := matching.BuildAttentionMatrix(cvBundle, jobBundle, a.logger)
	scores := matching.ScoreAlignment(cvKeywords, jobKeywords, matrix)

	a.tracker.Complete(id, progress.StepSimilarity, map[string]any{"overall": scores.Overall})

	// Completeness gate: nothing incomplete gets persisted as completed.
	err = matching.ValidateCompleteness(matching.ValidationInput{
		CVKeywords:    cvKeywords,
		JobKeywords:   jobKeywords,
		CVEmbeddings:  cvBundle,
		JobEmbeddings: jobBundle,
		Matrix:        matrix,
		Scores:        scores,
	})
	if err != nil {
		return a.fail(analysisID, err, "Analysis produced incomplete results and was aborted.")
	}

	// Stage 4: ablation for low-scoring categories. Categories run
	// concurrently; each category's simulations run sequentially.
	ablations, err := a.runAblations(ctx, cvKeywords, jobKeywords, jobBundle, scores)
	if err != nil {
		return a.fail(analysisID, err, "Keyword impact analysis failed. Please try again.")
	}

	a.tracker.Complete(id, progress.StepRecommendations, nil)

	// Stage 5: merged, ranked recommendations.
	recommendations := matching.RankRecommendations(atsReport, ablations, scores)

	a.tracker.Complete(id, progress.StepSuggestions, map[string]any{"count": len(recommendations)})

	update, err := buildUpdateData(cvKeywords, jobKeywords, matrix, scores, atsReport, ablations, recommendations)
	if err != nil {
		return a.fail(analysisID, err, "Failed to store analysis results.")
	}
	update.ProcessingTimeMs = time.Since(started).Milliseconds()

	if err := a.analysisRepo.UpdateResult(analysisID, update); err != nil {
		return a.fail(analysisID, err, "Failed to store analysis results.")
	}

	// Side effect, never fatal: index the CV vector for similar-analysis
	// lookup.
	if err := a.upsertVector(ctx, analysis, cvBundle.Full); err != nil {
		a.logger.Warn("failed to index analysis vector",
			zap.String("analysis_id", id),
			zap.Error(err))
	}

	a.tracker.Complete(id, progress.StepComplete, map[string]any{"overall": scores.Overall})

	a.logger.Info("✅ analysis completed",
		zap.String("analysis_id", id),
		zap.Int("overall_score", scores.Overall),
		zap.Duration("elapsed", time.Since(started)))

	return nil
}

func (a *analyzerService) extractWithTimeout(ctx context.Context, kind, text string) (ParsedSections, matching.KeywordSet, error) {
	tctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()
	return a.extraction.Extract(tctx, kind, text)
}

func (a *analyzerService) buildBundleWithTimeout(ctx context.Context, text string, sections ParsedSections, keywords matching.KeywordSet) (*matching.EmbeddingBundle, error) {
	tctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()
	return a.embeddings.BuildBundle(tctx, text, sections, keywords)
}

func (a *analyzerService) runAblations(
	ctx context.Context,
	cvKeywords, jobKeywords matching.KeywordSet,
	jobBundle *matching.EmbeddingBundle,
	scores matching.AlignmentScores,
) ([]matching.AblationResult, error) {
	analyzer := matching.NewAblationAnalyzer(a.timedEmbed, a.embeddings.ComposeCategoryText, a.logger)

	results := make([]matching.AblationResult, 0, len(matching.Categories()))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, category := range matching.Categories() {
		score := scores.Categories[category]
		if score >= matching.AblationThreshold || len(cvKeywords.Get(category)) == 0 {
			continue
		}

		g.Go(func() error {
			result, err := analyzer.Analyze(gctx, category,
				cvKeywords.Get(category), jobKeywords.Get(category), jobBundle.Vector(category))
			if err != nil {
				return fmt.Errorf("ablation for %s: %w", category, err)
			}
			mu.Lock()
			results = append(results, *result)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// timedEmbed bounds each ablation simulation call by the provider timeout.
func (a *analyzerService) timedEmbed(ctx context.Context, text string) ([]float32, error) {
	tctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()
	return a.embeddings.Embed(tctx, text)
}

func (a *analyzerService) upsertVector(ctx context.Context, analysis *models.Analysis, vector []float32) error {
	if a.vectorStore == nil {
		return nil
	}

	tctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()

	return a.vectorStore.UpsertAnalysis(tctx, analysis.ID.String(), analysis.UserID, analysis.JobTitle, vector)
}

func (a *analyzerService) fail(analysisID uuid.UUID, cause error, userMessage string) error {
	id := analysisID.String()

	a.logger.Error("❌ analysis failed",
		zap.String("analysis_id", id),
		zap.Error(cause))

	if err := a.analysisRepo.UpdateError(analysisID, userMessage); err != nil {
		a.logger.Error("failed to mark analysis failed",
			zap.String("analysis_id", id),
			zap.Error(err))
	}

	a.tracker.Fail(id, userMessage)

	return fmt.Errorf("analysis %s: %w", id, cause)
}

func buildUpdateData(
	cvKeywords, jobKeywords matching.KeywordSet,
	matrix matching.AttentionMatrix,
	scores matching.AlignmentScores,
	atsReport matching.ATSReport,
	ablations []matching.AblationResult,
	recommendations []matching.Recommendation,
) (*repositories.AnalysisUpdateData, error) {
	update := &repositories.AnalysisUpdateData{}

	fields := []struct {
		target *datatypes.JSON
		value  any
	}{
		{&update.CVKeywords, cvKeywords},
		{&update.JobKeywords, jobKeywords},
		{&update.AttentionMatrix, matrix},
		{&update.AlignmentScores, scores},
		{&update.ATSReport, atsReport},
		{&update.AblationResults, ablations},
		{&update.Recommendations, recommendations},
	}

	for _, field := range fields {
		data, err := json.Marshal(field.value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal analysis artifact: %w", err)
		}
		*field.target = datatypes.JSON(data)
	}

	return update, nil
}
