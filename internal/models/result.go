package models

import "encoding/json"

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
	WordCount    int    `json:"word_count"`
}

// AnalyzeRequest starts a matching run. Either raw text or a previously
// uploaded document id can be supplied per side.
type AnalyzeRequest struct {
	UserID        string `json:"user_id"`
	JobTitle      string `json:"job_title"`
	CVText        string `json:"cv_text"`
	JobText       string `json:"job_description"`
	CVDocumentID  string `json:"cv_document_id"`
	JobDocumentID string `json:"job_document_id"`
}

type AnalyzeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID               string        `json:"id"`
	Status           string        `json:"status"`
	JobTitle         string        `json:"job_title,omitempty"`
	Result           *ResultDetail `json:"result,omitempty"`
	ErrorMessage     *string       `json:"error_message,omitempty"`
	ProcessingTimeMs int64         `json:"processing_time_ms,omitempty"`
}

// ResultDetail carries the persisted JSONB artifacts back to the client
// without re-interpreting them.
type ResultDetail struct {
	CVKeywords      json.RawMessage `json:"cv_keywords,omitempty"`
	JobKeywords     json.RawMessage `json:"job_keywords,omitempty"`
	AttentionMatrix json.RawMessage `json:"attention_matrix,omitempty"`
	AlignmentScores json.RawMessage `json:"alignment_scores,omitempty"`
	ATSReport       json.RawMessage `json:"ats_report,omitempty"`
	AblationResults json.RawMessage `json:"ablation_results,omitempty"`
	Recommendations json.RawMessage `json:"recommendations,omitempty"`
}

type SimilarAnalysisResponse struct {
	AnalysisID string  `json:"analysis_id"`
	JobTitle   string  `json:"job_title"`
	Score      float32 `json:"score"`
}
