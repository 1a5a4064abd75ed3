package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// VectorStoreService keeps the full-document CV embedding of every
// completed analysis, so past analyses with similar candidate profiles
// can be surfaced.
type VectorStoreService interface {
	InitCollection() error
	UpsertAnalysis(ctx context.Context, analysisID, userID, jobTitle string, embedding []float32) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]AnalysisHit, error)
	DeleteAnalysis(ctx context.Context, analysisID string) error
}

// AnalysisHit is one similar past analysis.
type AnalysisHit struct {
	AnalysisID string
	UserID     string
	JobTitle   string
	Score      float32
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	logger         *zap.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, vectorSize int, logger *zap.Logger) (VectorStoreService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// For gRPC client, use port 6334 by default (gRPC port)
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     uint64(vectorSize),
		logger:         logger,
	}, nil
}

// InitCollection implements VectorStoreService.
func (q *qdrantService) InitCollection() error {
	ctx := context.Background()

	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.logger.Info("qdrant collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})

	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.logger.Info("qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// UpsertAnalysis implements VectorStoreService. The point id is the
// analysis uuid, so re-upserting the same analysis overwrites its vector.
func (q *qdrantService) UpsertAnalysis(ctx context.Context, analysisID, userID, jobTitle string, embedding []float32) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(analysisID),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"analysis_id": analysisID,
			"user_id":     userID,
			"job_title":   jobTitle,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// SearchSimilar implements VectorStoreService.
func (q *qdrantService) SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]AnalysisHit, error) {
	searchResult, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var hits []AnalysisHit
	for _, point := range searchResult {
		payload := point.Payload

		hit := AnalysisHit{Score: point.Score}

		if analysisID, ok := payload["analysis_id"]; ok {
			if val, ok := analysisID.GetKind().(*qdrant.Value_StringValue); ok {
				hit.AnalysisID = val.StringValue
			}
		}

		if userID, ok := payload["user_id"]; ok {
			if val, ok := userID.GetKind().(*qdrant.Value_StringValue); ok {
				hit.UserID = val.StringValue
			}
		}

		if jobTitle, ok := payload["job_title"]; ok {
			if val, ok := jobTitle.GetKind().(*qdrant.Value_StringValue); ok {
				hit.JobTitle = val.StringValue
			}
		}

		hits = append(hits, hit)
	}

	return hits, nil
}

// DeleteAnalysis implements VectorStoreService.
func (q *qdrantService) DeleteAnalysis(ctx context.Context, analysisID string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("analysis_id", analysisID),
		},
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filter,
			},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to delete analysis vector: %w", err)
	}

	return nil
}
