package handlers

import (
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/repositories"
	"alfredoptarigan/cv-matcher/internal/services"
)

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	pdfParser      services.PDFParserService
	maxFileSize    int64
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	pdfParser services.PDFParserService,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		docRepo:        docRepo,
		storageService: storageService,
		pdfParser:      pdfParser,
		maxFileSize:    maxFileSize,
	}
}

// HandleUpload handles POST /upload. Accepts 'cv' and/or 'job' PDF files,
// stores them and extracts their text so later analyze requests can reference
// the document ids instead of pasting raw text.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	var responses []models.UploadResponse

	for _, fileType := range []string{"cv", "job"} {
		files, exists := form.File[fileType]
		if !exists || len(files) == 0 {
			continue
		}

		response, status, err := h.processFile(files[0], fileType)
		if err != nil {
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}

		responses = append(responses, *response)
	}

	if len(responses) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No valid files uploaded. Please upload 'cv' and/or 'job' as PDF files.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Files uploaded successfully",
		"documents": responses,
	})
}

func (h *UploadHandler) processFile(file *multipart.FileHeader, fileType string) (*models.UploadResponse, int, error) {
	if file.Size > h.maxFileSize {
		return nil, fiber.StatusBadRequest,
			fmt.Errorf("%s file too large. Max size: %d bytes", fileType, h.maxFileSize)
	}

	filename, filePath, err := h.storageService.SaveFile(file, fileType)
	if err != nil {
		return nil, fiber.StatusBadRequest,
			fmt.Errorf("failed to save %s file: %v", fileType, err)
	}

	content, err := h.pdfParser.ExtractText(filePath)
	if err != nil {
		h.storageService.DeleteFile(filename)
		return nil, fiber.StatusUnprocessableEntity,
			fmt.Errorf("failed to extract text from %s file: %v", fileType, err)
	}

	doc := models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FileType:         fileType,
		FilePath:         filePath,
		ExtractedText:    content.Text,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.docRepo.Create(&doc); err != nil {
		h.storageService.DeleteFile(filename)
		return nil, fiber.StatusInternalServerError,
			fmt.Errorf("failed to save %s document record", fileType)
	}

	return &models.UploadResponse{
		ID:           doc.ID.String(),
		Filename:     doc.Filename,
		OriginalName: doc.OriginalFileName,
		FileType:     doc.FileType,
		WordCount:    content.WordCount,
	}, fiber.StatusCreated, nil
}
