package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
	"github.com/sbilibin2017/gw-transactions/internal/repositories"
)

//go:generate mockgen -source=transaction.go -destination=transaction_mock.go -package=services

const (
	// DefaultPageSize is used when the caller asks for no particular page size.
	DefaultPageSize = 20
	// MaxPageSize caps the page size a caller can request.
	MaxPageSize = 100
)

// TransactionReader reads stored transactions.
type TransactionReader interface {
	List(ctx context.Context, offset, limit int) ([]models.Transaction, error) // Returns transactions newest first
}

// TransactionWriter persists transaction changes.
type TransactionWriter interface {
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)
	Update(ctx context.Context, id string, patch models.TransactionPatch, category *models.Category) (models.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// PageCache caches list pages.
type PageCache interface {
	GetPage(ctx context.Context, page, pageSize int) (models.TransactionsResponse, error)
	SetPage(ctx context.Context, page, pageSize int, resp models.TransactionsResponse) error
	Invalidate(ctx context.Context) error
}

// CategoryResolver enriches category names.
type CategoryResolver interface {
	Resolve(name *string) (models.Category, error)
	ResolveOrDefault(name *string) models.Category
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// TransactionService implements the transaction collection API.
type TransactionService struct {
	reader      TransactionReader
	writer      TransactionWriter
	cache       PageCache
	categories  CategoryResolver
	kafkaWriter KafkaWriter
	afterCommit func(ctx context.Context, fn func())
}

// NewTransactionService creates a new TransactionService. cache and kafkaWriter may be nil.
// afterCommit defers cache invalidation and events until the write is committed; nil runs
// them right after the write.
func NewTransactionService(
	reader TransactionReader,
	writer TransactionWriter,
	cache PageCache,
	categories CategoryResolver,
	kafkaWriter KafkaWriter,
	afterCommit func(ctx context.Context, fn func()),
) *TransactionService {
	return &TransactionService{
		reader:      reader,
		writer:      writer,
		cache:       cache,
		categories:  categories,
		kafkaWriter: kafkaWriter,
		afterCommit: afterCommit,
	}
}

// List returns one page of transactions, newest first.
func (s *TransactionService) List(ctx context.Context, page, pageSize int) (models.TransactionsResponse, error) {
	if page < 0 {
		return models.TransactionsResponse{}, models.NewValidationError("page", "page must not be negative")
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}

	if s.cache != nil {
		resp, err := s.cache.GetPage(ctx, page, pageSize)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, repositories.ErrCacheMiss) {
			logger.Log.Warnw("failed to read page cache", "page", page, "pageSize", pageSize, "error", err)
		}
	}

	// one extra row tells whether another page follows
	txs, err := s.reader.List(ctx, page*pageSize, pageSize+1)
	if err != nil {
		logger.Log.Errorw("failed to list transactions", "page", page, "pageSize", pageSize, "error", err)
		return models.TransactionsResponse{}, err
	}

	resp := models.TransactionsResponse{Transactions: txs, HasMore: len(txs) > pageSize}
	if resp.HasMore {
		resp.Transactions = txs[:pageSize]
	}
	if resp.Transactions == nil {
		resp.Transactions = []models.Transaction{}
	}

	if s.cache != nil {
		if err := s.cache.SetPage(ctx, page, pageSize, resp); err != nil {
			logger.Log.Warnw("failed to cache page", "page", page, "pageSize", pageSize, "error", err)
		}
	}
	return resp, nil
}

// Create stores a new transaction and publishes a created event.
func (s *TransactionService) Create(ctx context.Context, patch models.TransactionPatch) (models.Transaction, error) {
	if err := patch.ValidateCreate(); err != nil {
		return models.Transaction{}, err
	}
	category := s.categories.ResolveOrDefault(patch.Category)

	date := models.DateOf(time.Now())
	if patch.Date != nil {
		date = *patch.Date
	}

	created, err := s.writer.Create(ctx, models.Transaction{
		ID:          uuid.NewString(),
		Date:        date,
		Description: strings.TrimSpace(*patch.Description),
		Amount:      *patch.Amount,
		Category:    category,
	})
	if err != nil {
		logger.Log.Errorw("failed to create transaction", "error", err)
		return models.Transaction{}, err
	}

	s.announce(ctx, models.OperationCreated, created.ID, &created)
	return created, nil
}

// Update applies the present fields of patch and publishes an updated event.
func (s *TransactionService) Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error) {
	if err := patch.ValidateUpdate(); err != nil {
		return models.Transaction{}, err
	}

	var category *models.Category
	if patch.Category != nil {
		cat, err := s.categories.Resolve(patch.Category)
		if err != nil {
			return models.Transaction{}, err
		}
		category = &cat
	}

	updated, err := s.writer.Update(ctx, id, patch, category)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			logger.Log.Errorw("failed to update transaction", "id", id, "error", err)
		}
		return models.Transaction{}, err
	}

	s.announce(ctx, models.OperationUpdated, id, &updated)
	return updated, nil
}

// Delete removes a transaction and publishes a deleted event.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.writer.Delete(ctx, id); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			logger.Log.Errorw("failed to delete transaction", "id", id, "error", err)
		}
		return err
	}

	s.announce(ctx, models.OperationDeleted, id, nil)
	return nil
}

// announce drops cached pages and publishes the change once the write is durable.
func (s *TransactionService) announce(ctx context.Context, operation, id string, tx *models.Transaction) {
	fn := func() {
		s.invalidate(ctx)
		s.publishEvent(ctx, operation, id, tx)
	}
	if s.afterCommit == nil {
		fn()
		return
	}
	s.afterCommit(ctx, fn)
}

func (s *TransactionService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Log.Warnw("failed to invalidate page cache", "error", err)
	}
}

// publishEvent publishes a change event to Kafka.
func (s *TransactionService) publishEvent(ctx context.Context, operation, id string, tx *models.Transaction) {
	if s.kafkaWriter == nil {
		logger.Log.Debugw("Kafka writer not configured, skipping publishing", "transaction_id", id)
		return
	}

	event := models.TransactionEvent{
		EventID:       uuid.NewString(),
		Timestamp:     time.Now().Unix(),
		Operation:     operation,
		TransactionID: id,
		Transaction:   tx,
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("Failed to marshal event for Kafka", "transaction_id", id, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(id),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish event to Kafka", "transaction_id", id, "operation", operation, "error", err)
	} else {
		logger.Log.Infow("Event published to Kafka", "transaction_id", id, "operation", operation)
	}
}
