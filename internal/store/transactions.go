package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

var orderColumns = map[string]bool{
	models.OrderByCreatedAt: true,
	models.OrderByDate:      true,
	models.OrderByAmount:    true,
}

// TransactionStore reads and writes the transactions table. Every method is
// scoped to a single owner.
type TransactionStore struct {
	db *gorm.DB
}

func NewTransactionStore(db *gorm.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// List returns one page of the owner's transactions and the number of rows
// matching the filters regardless of paging.
func (s *TransactionStore) List(ctx context.Context, userID string, q models.QuerySpec) ([]models.Transaction, int64, error) {
	var total int64
	if err := s.filtered(ctx, userID, q).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	rows := []models.Transaction{}
	if total == 0 || int64(q.Offset()) >= total {
		return rows, total, nil
	}

	err := s.filtered(ctx, userID, q).
		Scopes(ordered(q), paginate(q)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return rows, total, nil
}

// All returns every matching transaction in query order, ignoring paging.
func (s *TransactionStore) All(ctx context.Context, userID string, q models.QuerySpec) ([]models.Transaction, error) {
	rows := []models.Transaction{}
	if err := s.filtered(ctx, userID, q).Scopes(ordered(q)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rows, nil
}

func (s *TransactionStore) Find(ctx context.Context, userID string, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return &tx, nil
}

// Exists reports whether id belongs to userID without loading the row.
func (s *TransactionStore) Exists(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check transaction owner: %w", err)
	}
	return count > 0, nil
}

// Update applies fields (column name to value) and returns the stored row.
func (s *TransactionStore) Update(ctx context.Context, userID string, id uuid.UUID, fields map[string]interface{}) (*models.Transaction, error) {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("update transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Find(ctx, userID, id)
}

func (s *TransactionStore) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Transaction{})
	if res.Error != nil {
		return fmt.Errorf("delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Amounts returns the type and amount of the owner's transactions dated at or
// after since. A nil since means no lower bound.
func (s *TransactionStore) Amounts(ctx context.Context, userID string, since *time.Time) ([]models.TransactionAmount, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select([]string{"type", "amount"}).
		Where("user_id = ?", userID)
	if since != nil {
		query = query.Where("date >= ?", since.UTC())
	}

	var rows []models.TransactionAmount
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read amounts: %w", err)
	}
	return rows, nil
}

func (s *TransactionStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *TransactionStore) filtered(ctx context.Context, userID string, q models.QuerySpec) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	if q.Type != nil {
		query = query.Where("type = ?", *q.Type)
	}
	if q.StartDate != nil {
		query = query.Where("date >= ?", q.StartDate.UTC())
	}
	if q.EndDate != nil {
		query = query.Where("date <= ?", q.EndDate.UTC())
	}
	return query
}

// ordered sorts by the requested column and then by id, so rows with equal
// keys keep a stable position across pages.
func ordered(q models.QuerySpec) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		column := q.OrderBy
		if !orderColumns[column] {
			column = models.OrderByCreatedAt
		}
		desc := q.Order != models.OrderAsc
		return db.
			Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
}

func paginate(q models.QuerySpec) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(q.Offset()).Limit(q.Limit)
	}
}
