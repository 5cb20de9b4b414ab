package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"finance/internal/models"
	"finance/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var minAmount = decimal.New(1, -2)

const msgTransactionNotFound = "transaction not found"

// TransactionRepository is the persistence the transaction service needs.
// store.TransactionStore implements it.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	List(ctx context.Context, userID string, q models.QuerySpec) ([]models.Transaction, int64, error)
	All(ctx context.Context, userID string, q models.QuerySpec) ([]models.Transaction, error)
	Find(ctx context.Context, userID string, id uuid.UUID) (*models.Transaction, error)
	Exists(ctx context.Context, userID string, id uuid.UUID) (bool, error)
	Update(ctx context.Context, userID string, id uuid.UUID, fields map[string]interface{}) (*models.Transaction, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	Amounts(ctx context.Context, userID string, since *time.Time) ([]models.TransactionAmount, error)
}

type TransactionService struct {
	repo   TransactionRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewTransactionService(repo TransactionRepository, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new transaction owned by caller. Ownership, id and
// timestamps never come from the request.
func (s *TransactionService) Create(ctx context.Context, caller *models.Identity, req models.CreateTransactionRequest) (*models.Transaction, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, Validation("name is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, Validation("title is required")
	}
	if !req.Type.Valid() {
		return nil, Validation("type must be one of: income, outcome")
	}
	amount, err := validateAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	now := s.now()
	date := now
	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		if date, _, err = ParseDate(*req.Date); err != nil {
			return nil, err
		}
	}

	tx := &models.Transaction{
		ID:          uuid.New(),
		Name:        name,
		Title:       title,
		Description: emptyToNil(req.Description),
		Type:        req.Type,
		Amount:      amount,
		Date:        date,
		UserID:      caller.UserID,
		CreatedAt:   now,
		UpdatedAt:   nil,
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, Upstream("failed to create transaction", err)
	}

	s.logger.Info("transaction created",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("user_id", caller.UserID),
		zap.String("type", string(tx.Type)))
	return tx, nil
}

// List returns a page of the caller's transactions.
func (s *TransactionService) List(ctx context.Context, caller *models.Identity, q models.QuerySpec) (*models.TransactionPage, error) {
	q, err := NormalizeQuery(q)
	if err != nil {
		return nil, err
	}

	rows, total, err := s.repo.List(ctx, caller.UserID, q)
	if err != nil {
		return nil, Upstream("failed to list transactions", err)
	}

	return &models.TransactionPage{
		Data: rows,
		Pagination: models.Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: TotalPages(total, q.Limit),
		},
	}, nil
}

// Export returns every transaction matching the filters of q, ignoring paging.
func (s *TransactionService) Export(ctx context.Context, caller *models.Identity, q models.QuerySpec) ([]models.Transaction, error) {
	q, err := NormalizeQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.All(ctx, caller.UserID, q)
	if err != nil {
		return nil, Upstream("failed to export transactions", err)
	}
	return rows, nil
}

func (s *TransactionService) Get(ctx context.Context, caller *models.Identity, id uuid.UUID) (*models.Transaction, error) {
	tx, err := s.repo.Find(ctx, caller.UserID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFound(msgTransactionNotFound)
	}
	if err != nil {
		return nil, Upstream("failed to get transaction", err)
	}
	return tx, nil
}

// Update merges the fields present in req into the caller's transaction.
func (s *TransactionService) Update(ctx context.Context, caller *models.Identity, id uuid.UUID, req models.UpdateTransactionRequest) (*models.Transaction, error) {
	if err := s.checkOwnership(ctx, caller, id); err != nil {
		return nil, err
	}

	fields, err := updateFields(req)
	if err != nil {
		return nil, err
	}
	fields["updated_at"] = s.now()

	tx, err := s.repo.Update(ctx, caller.UserID, id, fields)
	if errors.Is(err, store.ErrNotFound) {
		// deleted between the check and the write
		return nil, NotFound(msgTransactionNotFound)
	}
	if err != nil {
		return nil, Upstream("failed to update transaction", err)
	}

	s.logger.Info("transaction updated",
		zap.String("transaction_id", id.String()),
		zap.String("user_id", caller.UserID))
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, caller *models.Identity, id uuid.UUID) error {
	if err := s.checkOwnership(ctx, caller, id); err != nil {
		return err
	}

	err := s.repo.Delete(ctx, caller.UserID, id)
	if errors.Is(err, store.ErrNotFound) {
		return NotFound(msgTransactionNotFound)
	}
	if err != nil {
		return Upstream("failed to delete transaction", err)
	}

	s.logger.Info("transaction deleted",
		zap.String("transaction_id", id.String()),
		zap.String("user_id", caller.UserID))
	return nil
}

// Summarize totals the caller's income and outcome over the window ending now.
func (s *TransactionService) Summarize(ctx context.Context, caller *models.Identity, period models.Period) (*models.Summary, error) {
	if !period.Valid() {
		return nil, Validation("period must be one of: week, month, bimester, semester")
	}

	rows, err := s.repo.Amounts(ctx, caller.UserID, period.Since(s.now()))
	if err != nil {
		return nil, Upstream("failed to get summary", err)
	}

	income, outcome := decimal.Zero, decimal.Zero
	for _, row := range rows {
		switch row.Type {
		case models.TransactionTypeIncome:
			income = income.Add(row.Amount)
		case models.TransactionTypeOutcome:
			outcome = outcome.Add(row.Amount)
		}
	}

	return &models.Summary{
		Period:            period.String(),
		Income:            income,
		Outcome:           outcome,
		Balance:           income.Sub(outcome),
		TotalTransactions: len(rows),
	}, nil
}

// checkOwnership reports NotFound both for unknown ids and for ids owned by
// someone else.
func (s *TransactionService) checkOwnership(ctx context.Context, caller *models.Identity, id uuid.UUID) error {
	ok, err := s.repo.Exists(ctx, caller.UserID, id)
	if err != nil {
		return Upstream("failed to verify transaction ownership", err)
	}
	if !ok {
		return NotFound(msgTransactionNotFound)
	}
	return nil
}

func updateFields(req models.UpdateTransactionRequest) (map[string]interface{}, error) {
	fields := map[string]interface{}{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, Validation("name must not be empty")
		}
		fields["name"] = name
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, Validation("title must not be empty")
		}
		fields["title"] = title
	}
	if req.Description.Present {
		fields["description"] = emptyToNil(req.Description.Value)
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, Validation("type must be one of: income, outcome")
		}
		fields["type"] = *req.Type
	}
	if req.Amount != nil {
		amount, err := validateAmount(*req.Amount)
		if err != nil {
			return nil, err
		}
		fields["amount"] = amount
	}
	if req.Date != nil {
		date, _, err := ParseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		fields["date"] = date
	}

	return fields, nil
}

func validateAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.LessThan(minAmount) {
		return decimal.Zero, Validation("amount must be at least 0.01")
	}
	return amount.Round(2), nil
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}
