package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

const (
	fieldText      = "text"
	fieldNamespace = "namespace"
	fieldFilename  = "filename"
	fieldChunk     = "chunk"
	fieldKey       = "key"

	defaultBatchSize = 100
)

var _ Index = &QdrantStore{}

type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	BatchSize  int
}

type QdrantStore struct {
	client     *qdrant.Client
	collection string
	batchSize  int
}

func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		batchSize:  cfg.BatchSize,
	}, nil
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}
	if err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	}); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	if _, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      fieldNamespace,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	}); err != nil {
		return fmt.Errorf("create namespace index: %w", err)
	}
	return nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) Upsert(ctx context.Context, namespace string, records []Record) error {
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		pts := make([]*qdrant.PointStruct, 0, end-start)

		for _, r := range records[start:end] {
			pts = append(pts, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(r.ID),
				Vectors: qdrant.NewVectors(r.Vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					fieldText:      r.Text,
					fieldNamespace: namespace,
					fieldFilename:  r.Filename,
					fieldChunk:     int64(r.Chunk),
					fieldKey:       r.Key,
				}),
			})
		}

		if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         pts,
		}); err != nil {
			return fmt.Errorf("upsert batch at %d: %w", start, err)
		}
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	limit := uint64(k)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(fieldNamespace, namespace)},
		},
		Query:       qdrant.NewQuery(vector...),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(resp))
	for _, r := range resp {
		out = append(out, Match{Record: recordFromPayload(r.Id, r.Payload), Score: r.Score})
	}
	return out, nil
}

func recordFromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value) Record {
	rec := Record{
		Text:      payload[fieldText].GetStringValue(),
		Namespace: payload[fieldNamespace].GetStringValue(),
		Filename:  payload[fieldFilename].GetStringValue(),
		Chunk:     int(payload[fieldChunk].GetIntegerValue()),
		Key:       payload[fieldKey].GetStringValue(),
	}
	if id != nil {
		switch x := id.PointIdOptions.(type) {
		case *qdrant.PointId_Uuid:
			rec.ID = x.Uuid
		case *qdrant.PointId_Num:
			rec.ID = fmt.Sprintf("%d", x.Num)
		}
	}
	return rec
}
