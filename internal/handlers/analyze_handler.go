package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/progress"
	"alfredoptarigan/cv-matcher/internal/repositories"
	"alfredoptarigan/cv-matcher/internal/services"
)

type AnalyzeHandler struct {
	analysisRepo repositories.AnalysisRepository
	docRepo      repositories.DocumentRepository
	analyzer     services.AnalyzerService
	worker       services.Worker
	tracker      *progress.Tracker
}

func NewAnalyzeHandler(
	analysisRepo repositories.AnalysisRepository,
	docRepo repositories.DocumentRepository,
	analyzer services.AnalyzerService,
	worker services.Worker,
	tracker *progress.Tracker,
) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysisRepo: analysisRepo,
		docRepo:      docRepo,
		analyzer:     analyzer,
		worker:       worker,
		tracker:      tracker,
	}
}

// HandleAnalyze handles POST /analyze. Text can come in directly or by
// referencing a previously uploaded document per side. Input preconditions
// are checked before anything is queued.
func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	var req models.AnalyzeRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	cvText, err := h.resolveText(req.CVText, req.CVDocumentID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "CV document not found",
		})
	}

	jobText, err := h.resolveText(req.JobText, req.JobDocumentID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job description document not found",
		})
	}

	if err := h.analyzer.ValidateInput(cvText, jobText); err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to validate request",
		})
	}

	analysis := &models.Analysis{
		ID:        uuid.New(),
		UserID:    req.UserID,
		JobTitle:  req.JobTitle,
		CVText:    cvText,
		JobText:   jobText,
		Status:    models.StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := h.analysisRepo.Create(analysis); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create analysis job",
		})
	}

	// Register progress before the 202 goes out, so a client opening the
	// stream right after the response never races the worker pickup.
	h.tracker.Init(analysis.ID.String())
	h.worker.EnqueueJob(analysis.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.AnalyzeResponse{
		ID:     analysis.ID.String(),
		Status: string(models.StatusQueued),
	})
}

// resolveText prefers inline text and otherwise loads the referenced
// document's extracted text.
func (h *AnalyzeHandler) resolveText(inline, documentID string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if documentID == "" {
		return "", nil
	}

	docID, err := uuid.Parse(documentID)
	if err != nil {
		return "", err
	}

	doc, err := h.docRepo.FindByID(docID)
	if err != nil {
		return "", err
	}

	return doc.ExtractedText, nil
}
