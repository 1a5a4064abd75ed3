package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/repositories"
	"alfredoptarigan/cv-matcher/internal/services"
)

type ResultHandler struct {
	analysisRepo repositories.AnalysisRepository
	vectorStore  services.VectorStoreService
	embeddings   services.EmbeddingService
}

func NewResultHandler(
	analysisRepo repositories.AnalysisRepository,
	vectorStore services.VectorStoreService,
	embeddings services.EmbeddingService,
) *ResultHandler {
	return &ResultHandler{
		analysisRepo: analysisRepo,
		vectorStore:  vectorStore,
		embeddings:   embeddings,
	}
}

// HandleGetResult handles GET /result/:id.
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	analysisID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid analysis ID format",
		})
	}

	analysis, err := h.analysisRepo.FindByID(analysisID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Analysis not found",
		})
	}

	response := models.ResultResponse{
		ID:       analysis.ID.String(),
		Status:   string(analysis.Status),
		JobTitle: analysis.JobTitle,
	}

	if analysis.Status == models.StatusCompleted {
		response.ProcessingTimeMs = analysis.ProcessingTimeMs
		response.Result = &models.ResultDetail{
			CVKeywords:      json.RawMessage(analysis.CVKeywords),
			JobKeywords:     json.RawMessage(analysis.JobKeywords),
			AttentionMatrix: json.RawMessage(analysis.AttentionMatrix),
			AlignmentScores: json.RawMessage(analysis.AlignmentScores),
			ATSReport:       json.RawMessage(analysis.ATSReport),
			AblationResults: json.RawMessage(analysis.AblationResults),
			Recommendations: json.RawMessage(analysis.Recommendations),
		}
	}

	if analysis.Status == models.StatusFailed {
		response.ErrorMessage = analysis.ErrorMessage
	}

	return c.JSON(response)
}

// HandleHistory handles GET /analyses?user_id=&limit=.
func (h *ResultHandler) HandleHistory(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	analyses, err := h.analysisRepo.FindByUser(userID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load analysis history",
		})
	}

	return c.JSON(fiber.Map{"analyses": analyses})
}

// HandleSimilar handles GET /result/:id/similar: nearest past analyses by
// CV embedding.
func (h *ResultHandler) HandleSimilar(c *fiber.Ctx) error {
	analysisID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid analysis ID format",
		})
	}

	analysis, err := h.analysisRepo.FindByID(analysisID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Analysis not found",
		})
	}

	if analysis.Status != models.StatusCompleted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Analysis is not completed yet",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 15*time.Second)
	defer cancel()

	vector, err := h.embeddings.Embed(ctx, analysis.CVText)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Similarity search is temporarily unavailable",
		})
	}

	hits, err := h.vectorStore.SearchSimilar(ctx, vector, 6)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Similarity search is temporarily unavailable",
		})
	}

	var similar []models.SimilarAnalysisResponse
	for _, hit := range hits {
		if hit.AnalysisID == analysis.ID.String() {
			continue
		}
		similar = append(similar, models.SimilarAnalysisResponse{
			AnalysisID: hit.AnalysisID,
			JobTitle:   hit.JobTitle,
			Score:      hit.Score,
		})
	}

	return c.JSON(fiber.Map{"similar": similar})
}
