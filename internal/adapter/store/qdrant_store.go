package store

import (
	"context"
	"estimator-core/internal/domain/entity"
	"estimator-core/internal/logger"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// QdrantStore keeps classifier-path estimates keyed by description embedding.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
	maxAge         time.Duration
}

func NewQdrantStore(client *qdrant.Client, collectionName string, maxAge time.Duration) *QdrantStore {
	return &QdrantStore{
		client:         client,
		collectionName: collectionName,
		maxAge:         maxAge,
	}
}

func (s *QdrantStore) InitCollection(ctx context.Context, dim uint64) error {
	_, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		st, ok := status.FromError(err)
		if !ok || st.Code() != codes.NotFound {
			return err
		}
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dim,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	// Range index for the freshness filter
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collectionName,
		FieldName:      "created_at",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		logger.Get(ctx).Warn().Err(err).Msg("could not create created_at index (might already exist)")
	}

	return nil
}

// Search returns the closest fresh estimate above threshold together with the description it was made for.
// A miss is nil, "", nil.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, threshold float32, filters map[string]string) (*entity.EstimationResult, string, error) {
	mustConditions := make([]*qdrant.Condition, 0, len(filters)+1)
	for key, value := range filters {
		mustConditions = append(mustConditions, qdrant.NewMatch(key, value))
	}

	oldest := time.Now().Add(-s.maxAge).Unix()
	mustConditions = append(mustConditions, &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: "created_at",
				Range: &qdrant.Range{
					Gte: qdrant.PtrOf(float64(oldest)),
				},
			},
		},
	})

	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter:         &qdrant.Filter{Must: mustConditions},
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: &threshold,
	})
	if err != nil {
		return nil, "", err
	}
	if len(res) == 0 {
		return nil, "", nil
	}

	payload := res[0].Payload
	result := &entity.EstimationResult{
		EstimatedDurationHours: payload["estimated_duration_hours"].GetDoubleValue(),
		CalculatedCost:         payload["calculated_cost"].GetDoubleValue(),
		ModelUsed:              payload["model_used"].GetBoolValue(),
	}
	return result, payload["description"].GetStringValue(), nil
}

func (s *QdrantStore) Save(ctx context.Context, description string, result *entity.EstimationResult, vector []float32, metadata map[string]string) error {
	payload := map[string]any{
		"description":              description,
		"estimated_duration_hours": result.EstimatedDurationHours,
		"calculated_cost":          result.CalculatedCost,
		"model_used":               result.ModelUsed,
		"created_at":               time.Now().Unix(),
	}
	for k, v := range metadata {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(uuid.NewString()),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	return err
}
