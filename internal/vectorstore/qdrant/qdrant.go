// Package qdrant stores index entries in a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"strconv"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"ragqa/internal/domain"
)

const upsertBatch = 100

type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	UseTLS     bool
	Logger     *log.Logger
}

// Storage uses cosine distance and creates the collection on Init if missing.
// Point IDs are the chunk UUIDs, so re-upserting a chunk overwrites it.
type Storage struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	apiKey      string
	collection  string
	dimension   int
	logger      *log.Logger
}

func NewStorage(cfg Config) (*Storage, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant: collection name is required")
	}
	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	conn, err := grpc.NewClient(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Storage{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		apiKey:      cfg.APIKey,
		collection:  cfg.Collection,
		logger:      logger,
	}, nil
}

func (s *Storage) Close() error { return s.conn.Close() }

func (s *Storage) withKey(ctx context.Context) context.Context {
	if s.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
}

// Init drops any existing collection and creates an empty one of the given size.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	if err := s.drop(ctx); err != nil {
		return err
	}
	return s.create(ctx)
}

func (s *Storage) exists(ctx context.Context) (bool, error) {
	resp, err := s.collections.List(s.withKey(ctx), &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("qdrant: list collections: %w", err)
	}
	for _, c := range resp.GetCollections() {
		if c.GetName() == s.collection {
			return true, nil
		}
	}
	return false, nil
}

func (s *Storage) drop(ctx context.Context) error {
	ok, err := s.exists(ctx)
	if err != nil || !ok {
		return err
	}
	if _, err := s.collections.Delete(s.withKey(ctx), &qdrantclient.DeleteCollection{CollectionName: s.collection}); err != nil {
		return fmt.Errorf("qdrant: delete collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *Storage) create(ctx context.Context) error {
	req := &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(s.dimension),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	}
	if _, err := s.collections.Create(s.withKey(ctx), req); err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", s.collection, err)
	}
	s.logger.Printf("qdrant: created collection %s (dim %d)", s.collection, s.dimension)
	return nil
}

func (s *Storage) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if s.dimension == 0 {
		return errors.New("store not initialized")
	}
	wait := true
	batch := make([]*qdrantclient.PointStruct, 0, upsertBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := s.points.Upsert(s.withKey(ctx), &qdrantclient.UpsertPoints{
			CollectionName: s.collection,
			Wait:           &wait,
			Points:         batch,
		})
		batch = batch[:0]
		if err != nil {
			return fmt.Errorf("qdrant: upsert: %w", err)
		}
		return nil
	}
	for _, e := range entries {
		if len(e.Embedding) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		batch = append(batch, toPoint(e))
		if len(batch) >= upsertBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}
	resp, err := s.points.Search(s.withKey(ctx), &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         toFloat32(vector),
		Limit:          uint64(topK),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		results = append(results, domain.SearchResult{
			Entry: domain.IndexEntry{Chunk: chunkFromPayload(p.GetId().GetUuid(), p.GetPayload())},
			Score: float64(p.GetScore()),
		})
	}
	return results, nil
}

// Clear removes all points and recreates the collection with the current size.
func (s *Storage) Clear(ctx context.Context) error {
	if err := s.drop(ctx); err != nil {
		return err
	}
	if s.dimension == 0 {
		return nil
	}
	return s.create(ctx)
}

func toPoint(e domain.IndexEntry) *qdrantclient.PointStruct {
	return &qdrantclient.PointStruct{
		Id: &qdrantclient.PointId{
			PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: e.Chunk.ID},
		},
		Vectors: &qdrantclient.Vectors{
			VectorsOptions: &qdrantclient.Vectors_Vector{
				Vector: &qdrantclient.Vector{Data: toFloat32(e.Embedding)},
			},
		},
		Payload: map[string]*qdrantclient.Value{
			"document_id": stringValue(e.Chunk.DocumentID),
			"source_url":  stringValue(e.Chunk.SourceURL),
			"text":        stringValue(e.Chunk.Text),
			"index":       {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(e.Chunk.Index)}},
		},
	}
}

func chunkFromPayload(id string, payload map[string]*qdrantclient.Value) domain.Chunk {
	c := domain.Chunk{ID: id}
	if v, ok := payload["document_id"]; ok {
		c.DocumentID = v.GetStringValue()
	}
	if v, ok := payload["source_url"]; ok {
		c.SourceURL = v.GetStringValue()
	}
	if v, ok := payload["text"]; ok {
		c.Text = v.GetStringValue()
	}
	if v, ok := payload["index"]; ok {
		switch k := v.GetKind().(type) {
		case *qdrantclient.Value_IntegerValue:
			c.Index = int(k.IntegerValue)
		case *qdrantclient.Value_DoubleValue:
			c.Index = int(k.DoubleValue)
		case *qdrantclient.Value_StringValue:
			c.Index, _ = strconv.Atoi(k.StringValue)
		}
	}
	return c
}

func stringValue(s string) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: s}}
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
