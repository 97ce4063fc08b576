package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/embedding"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/llm"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/metrics"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/repositories"
)

// BackfillReport counts the outcome of one embedding backfill run.
type BackfillReport struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	// More is set when further messages still lack an embedding.
	More bool `json:"more"`
}

// BackfillService computes embeddings for messages that have none.
type BackfillService interface {
	Backfill(ctx context.Context, caseID uuid.UUID) (*BackfillReport, error)
}

type backfillService struct {
	cases     repositories.CaseRepository
	chats     repositories.ChatRepository
	embedder  embedding.Embedder
	pool      *llm.WorkerPool
	batchSize int
	logger    *zap.Logger
}

// NewBackfillService creates a BackfillService that embeds up to batchSize
// messages per run, with pool bounding concurrent embedding calls.
func NewBackfillService(
	cases repositories.CaseRepository,
	chats repositories.ChatRepository,
	embedder embedding.Embedder,
	pool *llm.WorkerPool,
	batchSize int,
	logger *zap.Logger,
) BackfillService {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &backfillService{
		cases:     cases,
		chats:     chats,
		embedder:  embedder,
		pool:      pool,
		batchSize: batchSize,
		logger:    logger.Named("embedding-backfill"),
	}
}

var _ BackfillService = (*backfillService)(nil)

// Backfill embeds one batch of the case's messages. Embedding calls run
// concurrently; vectors are written back sequentially on the caller's connection.
func (s *backfillService) Backfill(ctx context.Context, caseID uuid.UUID) (*BackfillReport, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("Failed to load case", zap.String("case_id", caseID.String()), zap.Error(err))
		}
		return nil, err
	}
	ids, err := s.cases.DeviceIDs(ctx, caseID)
	if err != nil {
		s.logger.Error("Failed to load case devices", zap.String("case_id", caseID.String()), zap.Error(err))
		return nil, err
	}
	scope := models.DevicesOf(ids)

	messages, err := s.chats.ListMissingEmbeddings(ctx, scope, s.batchSize+1)
	if err != nil {
		s.logger.Error("Failed to list messages missing embeddings", zap.Error(err))
		return nil, err
	}

	report := &BackfillReport{}
	if len(messages) > s.batchSize {
		messages = messages[:s.batchSize]
		report.More = true
	}

	items := make([]llm.WorkItem[[]float32], 0, len(messages))
	for _, m := range messages {
		body := m.Body
		items = append(items, llm.WorkItem[[]float32]{
			ID: m.ID.String(),
			Execute: func(ctx context.Context) ([]float32, error) {
				return s.embedder.Embed(ctx, body)
			},
		})
	}

	results := llm.Process(ctx, s.pool, items, func(completed, total int) {
		if completed%100 == 0 || completed == total {
			s.logger.Debug("Embedding backfill progress",
				zap.Int("completed", completed),
				zap.Int("total", total))
		}
	})

	for _, r := range results {
		if r.Err != nil || len(r.Result) == 0 {
			report.Failed++
			continue
		}
		id, err := uuid.Parse(r.ID)
		if err != nil {
			report.Failed++
			continue
		}
		if err := s.chats.UpdateEmbedding(ctx, id, r.Result); err != nil {
			s.logger.Error("Failed to store embedding", zap.String("message_id", r.ID), zap.Error(err))
			return nil, err
		}
		report.Processed++
	}

	metrics.EmbeddingsBackfilled.WithLabelValues(metrics.StatusSuccess).Add(float64(report.Processed))
	metrics.EmbeddingsBackfilled.WithLabelValues(metrics.StatusError).Add(float64(report.Failed))

	s.logger.Info("Embedding backfill finished",
		zap.String("case_id", caseID.String()),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed))

	return report, nil
}
