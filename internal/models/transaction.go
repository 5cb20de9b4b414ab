package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeOutcome TransactionType = "outcome"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeOutcome
}

// Transaction is a single income or outcome record owned by one user.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Title       string          `gorm:"not null" json:"title"`
	Description *string         `json:"description"`
	Type        TransactionType `gorm:"size:16;not null;index" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	UserID      string          `gorm:"not null;index" json:"user_id"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt   *time.Time      `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// TransactionAmount is the projection read by the summary.
type TransactionAmount struct {
	Type   TransactionType
	Amount decimal.Decimal
}

type CreateTransactionRequest struct {
	Name        string          `json:"name"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        *string         `json:"date"`
}

// UpdateTransactionRequest holds a partial update; absent fields are left untouched.
type UpdateTransactionRequest struct {
	Name        *string          `json:"name"`
	Title       *string          `json:"title"`
	Description NullableString   `json:"description"`
	Type        *TransactionType `json:"type"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        *string          `json:"date"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type TransactionPage struct {
	Data       []Transaction `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

type Summary struct {
	Period            string          `json:"period"`
	Income            decimal.Decimal `json:"income"`
	Outcome           decimal.Decimal `json:"outcome"`
	Balance           decimal.Decimal `json:"balance"`
	TotalTransactions int             `json:"totalTransactions"`
}

// NullableString remembers whether a JSON field was sent at all, so an
// explicit null can clear a column while an absent field leaves it alone.
type NullableString struct {
	Present bool
	Value   *string
}

// NewNullableString returns a present value; nil means an explicit null.
func NewNullableString(v *string) NullableString {
	return NullableString{Present: true, Value: v}
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}
