package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"alfredoptarigan/cv-matcher/internal/matching"
	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/progress"
	"alfredoptarigan/cv-matcher/internal/repositories"
	"alfredoptarigan/cv-matcher/internal/services"
)

type memAnalysisRepo struct {
	mu       sync.Mutex
	analyses map[uuid.UUID]*models.Analysis
}

func newMemAnalysisRepo() *memAnalysisRepo {
	return &memAnalysisRepo{analyses: make(map[uuid.UUID]*models.Analysis)}
}

func (r *memAnalysisRepo) Create(analysis *models.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses[analysis.ID] = analysis
	return nil
}

func (r *memAnalysisRepo) FindByID(id uuid.UUID) (*models.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.analyses[id]
	if !ok {
		return nil, errors.New("analysis not found")
	}
	copied := *analysis
	return &copied, nil
}

func (r *memAnalysisRepo) FindByUser(userID string, limit int) ([]models.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Analysis
	for _, analysis := range r.analyses {
		if analysis.UserID == userID && len(out) < limit {
			out = append(out, *analysis)
		}
	}
	return out, nil
}

func (r *memAnalysisRepo) UpdateStatus(id uuid.UUID, status models.AnalysisStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if analysis, ok := r.analyses[id]; ok {
		analysis.Status = status
		return nil
	}
	return errors.New("analysis not found")
}

func (r *memAnalysisRepo) UpdateResult(id uuid.UUID, _ *repositories.AnalysisUpdateData) error {
	return r.UpdateStatus(id, models.StatusCompleted)
}

func (r *memAnalysisRepo) UpdateError(id uuid.UUID, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if analysis, ok := r.analyses[id]; ok {
		analysis.Status = models.StatusFailed
		analysis.ErrorMessage = &errorMsg
		return nil
	}
	return errors.New("analysis not found")
}

func (r *memAnalysisRepo) FindPendingJobs(int) ([]models.Analysis, error) {
	return nil, nil
}

func (r *memAnalysisRepo) ClaimJob(id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.analyses[id]
	if !ok || analysis.Status != models.StatusQueued {
		return false, nil
	}
	analysis.Status = models.StatusProcessing
	return true, nil
}

type memDocRepo struct {
	docs map[uuid.UUID]*models.Document
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{docs: make(map[uuid.UUID]*models.Document)}
}

func (r *memDocRepo) Create(document *models.Document) error {
	r.docs[document.ID] = document
	return nil
}

func (r *memDocRepo) FindByID(id uuid.UUID) (*models.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, errors.New("document not found")
	}
	return doc, nil
}

func (r *memDocRepo) FindByIDs(ids []uuid.UUID) ([]models.Document, error) {
	var out []models.Document
	for _, id := range ids {
		if doc, ok := r.docs[id]; ok {
			out = append(out, *doc)
		}
	}
	return out, nil
}

type stubAnalyzer struct {
	validateErr error
}

func (a *stubAnalyzer) ValidateInput(_, _ string) error { return a.validateErr }

func (a *stubAnalyzer) RunAnalysis(_ context.Context, _ uuid.UUID) error { return nil }

type stubWorker struct {
	enqueued []uuid.UUID
}

func (w *stubWorker) Start(context.Context)   {}
func (w *stubWorker) Stop()                   {}
func (w *stubWorker) EnqueueJob(id uuid.UUID) { w.enqueued = append(w.enqueued, id) }

type stubVectorStore struct {
	hits      []services.AnalysisHit
	searchErr error
}

func (s *stubVectorStore) InitCollection() error { return nil }

func (s *stubVectorStore) UpsertAnalysis(context.Context, string, string, string, []float32) error {
	return nil
}

func (s *stubVectorStore) SearchSimilar(context.Context, []float32, int) ([]services.AnalysisHit, error) {
	return s.hits, s.searchErr
}

func (s *stubVectorStore) DeleteAnalysis(context.Context, string) error { return nil }

type stubEmbedder struct {
	embedErr error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return []float32{1, 0}, nil
}

func (s *stubEmbedder) BuildBundle(context.Context, string, services.ParsedSections, matching.KeywordSet) (*matching.EmbeddingBundle, error) {
	return nil, nil
}

func (s *stubEmbedder) ComposeCategoryText(_ matching.Category, keywords []string) string {
	return strings.Join(keywords, ", ")
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func getPath(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func newTestTracker(t *testing.T) *progress.Tracker {
	t.Helper()
	tracker := progress.NewTracker(time.Minute, zap.NewNop())
	t.Cleanup(tracker.Stop)
	return tracker
}

func TestHandleAnalyzeAcceptsInlineText(t *testing.T) {
	repo := newMemAnalysisRepo()
	worker := &stubWorker{}
	handler := NewAnalyzeHandler(repo, newMemDocRepo(), &stubAnalyzer{}, worker, newTestTracker(t))

	app := fiber.New()
	app.Post("/analyze", handler.HandleAnalyze)

	resp := postJSON(t, app, "/analyze", models.AnalyzeRequest{
		UserID:   "user-1",
		JobTitle: "Backend Engineer",
		CVText:   strings.Repeat("backend ", 20),
		JobText:  strings.Repeat("golang ", 10),
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	body := decodeBody[models.AnalyzeResponse](t, resp)
	assert.Equal(t, "queued", body.Status)

	id, err := uuid.Parse(body.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, worker.enqueued)

	stored, err := repo.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, stored.Status)
}

func TestHandleAnalyzeResolvesDocumentText(t *testing.T) {
	repo := newMemAnalysisRepo()
	docRepo := newMemDocRepo()
	handler := NewAnalyzeHandler(repo, docRepo, &stubAnalyzer{}, &stubWorker{}, newTestTracker(t))

	cvDoc := &models.Document{ID: uuid.New(), FileType: "cv", ExtractedText: strings.Repeat("cv text ", 20)}
	docRepo.Create(cvDoc)

	app := fiber.New()
	app.Post("/analyze", handler.HandleAnalyze)

	resp := postJSON(t, app, "/analyze", models.AnalyzeRequest{
		UserID:       "user-1",
		CVDocumentID: cvDoc.ID.String(),
		JobText:      strings.Repeat("golang ", 10),
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	body := decodeBody[models.AnalyzeResponse](t, resp)
	id, _ := uuid.Parse(body.ID)

	stored, err := repo.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, cvDoc.ExtractedText, stored.CVText)
}

func TestHandleAnalyzeRejectsInvalidInput(t *testing.T) {
	handler := NewAnalyzeHandler(newMemAnalysisRepo(), newMemDocRepo(),
		&stubAnalyzer{validateErr: fmt.Errorf("%w: cv too short", services.ErrInvalidInput)},
		&stubWorker{}, newTestTracker(t))

	app := fiber.New()
	app.Post("/analyze", handler.HandleAnalyze)

	resp := postJSON(t, app, "/analyze", models.AnalyzeRequest{CVText: "x", JobText: "y"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleAnalyzeUnknownDocument(t *testing.T) {
	handler := NewAnalyzeHandler(newMemAnalysisRepo(), newMemDocRepo(), &stubAnalyzer{}, &stubWorker{}, newTestTracker(t))

	app := fiber.New()
	app.Post("/analyze", handler.HandleAnalyze)

	resp := postJSON(t, app, "/analyze", models.AnalyzeRequest{
		CVDocumentID: uuid.New().String(),
		JobText:      "some job description",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleAnalyzeRegistersProgressBeforeResponse(t *testing.T) {
	repo := newMemAnalysisRepo()
	tracker := newTestTracker(t)
	handler := NewAnalyzeHandler(repo, newMemDocRepo(), &stubAnalyzer{}, &stubWorker{}, tracker)

	app := fiber.New()
	app.Post("/analyze", handler.HandleAnalyze)

	resp := postJSON(t, app, "/analyze", models.AnalyzeRequest{
		UserID:  "user-1",
		CVText:  strings.Repeat("backend ", 20),
		JobText: strings.Repeat("golang ", 10),
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	body := decodeBody[models.AnalyzeResponse](t, resp)

	// The job is still queued (the stub worker never runs it), yet the
	// progress entry already exists for clients polling right after 202.
	snap, ok := tracker.Snapshot(body.ID)
	require.True(t, ok)
	assert.False(t, snap.Terminal)
	assert.Equal(t, progress.StepUpload, snap.CurrentStep.ID)
}

func parseEventFrames(t *testing.T, body string) []progress.Event {
	t.Helper()
	var events []progress.Event
	for _, line := range strings.Split(body, "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var event progress.Event
		require.NoError(t, json.Unmarshal([]byte(payload), &event))
		events = append(events, event)
	}
	return events
}

func TestHandleStreamAfterTerminalEmitsCompletedFrame(t *testing.T) {
	tracker := newTestTracker(t)
	id := uuid.NewString()
	tracker.Init(id)
	tracker.Fail(id, "Document analysis failed. Please try again.")

	handler := NewProgressHandler(tracker)
	app := fiber.New()
	app.Get("/progress/:id", handler.HandleStream)

	// The pipeline already reached its terminal state, so the stream must
	// still deliver exactly one frame with completed set instead of ending
	// empty.
	resp := getPath(t, app, "/progress/"+id)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	events := parseEventFrames(t, string(raw))
	require.Len(t, events, 1)
	assert.True(t, events[0].Completed)
}

func TestHandleStreamUnknownAnalysis(t *testing.T) {
	handler := NewProgressHandler(newTestTracker(t))
	app := fiber.New()
	app.Get("/progress/:id", handler.HandleStream)

	resp := getPath(t, app, "/progress/"+uuid.NewString())
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func completedAnalysis() *models.Analysis {
	return &models.Analysis{
		ID:               uuid.New(),
		UserID:           "user-1",
		JobTitle:         "Backend Engineer",
		CVText:           "cv text",
		Status:           models.StatusCompleted,
		AlignmentScores:  datatypes.JSON(`{"categories":{"hardSkills":80},"overall":75}`),
		CVKeywords:       datatypes.JSON(`{"hardSkills":["go"]}`),
		ProcessingTimeMs: 1200,
	}
}

func TestHandleGetResultCompleted(t *testing.T) {
	repo := newMemAnalysisRepo()
	analysis := completedAnalysis()
	repo.Create(analysis)

	handler := NewResultHandler(repo, &stubVectorStore{}, &stubEmbedder{})
	app := fiber.New()
	app.Get("/result/:id", handler.HandleGetResult)

	resp := getPath(t, app, "/result/"+analysis.ID.String())
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody[models.ResultResponse](t, resp)
	assert.Equal(t, "completed", body.Status)
	assert.Equal(t, int64(1200), body.ProcessingTimeMs)
	require.NotNil(t, body.Result)
	assert.JSONEq(t, `{"categories":{"hardSkills":80},"overall":75}`, string(body.Result.AlignmentScores))
}

func TestHandleGetResultFailed(t *testing.T) {
	repo := newMemAnalysisRepo()
	message := "Document analysis failed. Please try again."
	analysis := &models.Analysis{ID: uuid.New(), Status: models.StatusFailed, ErrorMessage: &message}
	repo.Create(analysis)

	handler := NewResultHandler(repo, &stubVectorStore{}, &stubEmbedder{})
	app := fiber.New()
	app.Get("/result/:id", handler.HandleGetResult)

	resp := getPath(t, app, "/result/"+analysis.ID.String())

	body := decodeBody[models.ResultResponse](t, resp)
	assert.Equal(t, "failed", body.Status)
	require.NotNil(t, body.ErrorMessage)
	assert.Equal(t, message, *body.ErrorMessage)
	assert.Nil(t, body.Result)
}

func TestHandleGetResultBadID(t *testing.T) {
	handler := NewResultHandler(newMemAnalysisRepo(), &stubVectorStore{}, &stubEmbedder{})
	app := fiber.New()
	app.Get("/result/:id", handler.HandleGetResult)

	resp := getPath(t, app, "/result/not-a-uuid")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleGetResultNotFound(t *testing.T) {
	handler := NewResultHandler(newMemAnalysisRepo(), &stubVectorStore{}, &stubEmbedder{})
	app := fiber.New()
	app.Get("/result/:id", handler.HandleGetResult)

	resp := getPath(t, app, "/result/"+uuid.NewString())
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleHistoryRequiresUserID(t *testing.T) {
	handler := NewResultHandler(newMemAnalysisRepo(), &stubVectorStore{}, &stubEmbedder{})
	app := fiber.New()
	app.Get("/analyses", handler.HandleHistory)

	resp := getPath(t, app, "/analyses")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = getPath(t, app, "/analyses?user_id=user-1")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHandleSimilarFiltersOwnAnalysis(t *testing.T) {
	repo := newMemAnalysisRepo()
	analysis := completedAnalysis()
	repo.Create(analysis)

	store := &stubVectorStore{hits: []services.AnalysisHit{
		{AnalysisID: analysis.ID.String(), JobTitle: "Backend Engineer", Score: 1.0},
		{AnalysisID: uuid.NewString(), JobTitle: "Platform Engineer", Score: 0.91},
	}}

	handler := NewResultHandler(repo, store, &stubEmbedder{})
	app := fiber.New()
	app.Get("/result/:id/similar", handler.HandleSimilar)

	resp := getPath(t, app, "/result/"+analysis.ID.String()+"/similar")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody[map[string][]models.SimilarAnalysisResponse](t, resp)
	similar := body["similar"]
	require.Len(t, similar, 1)
	assert.Equal(t, "Platform Engineer", similar[0].JobTitle)
}

func TestHandleSimilarRequiresCompletedAnalysis(t *testing.T) {
	repo := newMemAnalysisRepo()
	analysis := &models.Analysis{ID: uuid.New(), Status: models.StatusProcessing}
	repo.Create(analysis)

	handler := NewResultHandler(repo, &stubVectorStore{}, &stubEmbedder{})
	app := fiber.New()
	app.Get("/result/:id/similar", handler.HandleSimilar)

	resp := getPath(t, app, "/result/"+analysis.ID.String()+"/similar")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestHandleSimilarProviderFailure(t *testing.T) {
	repo := newMemAnalysisRepo()
	analysis := completedAnalysis()
	repo.Create(analysis)

	handler := NewResultHandler(repo, &stubVectorStore{}, &stubEmbedder{embedErr: errors.New("down")})
	app := fiber.New()
	app.Get("/result/:id/similar", handler.HandleSimilar)

	resp := getPath(t, app, "/result/"+analysis.ID.String()+"/similar")
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}
