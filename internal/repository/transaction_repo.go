package repository

import (
	"context"
	"fmt"
	"time"

	"taxcalc/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesRow is the accumulated revenue of one jurisdiction over a period.
type SalesRow struct {
	JurisdictionKey  string          `gorm:"column:jurisdiction_key"`
	Revenue          decimal.Decimal `gorm:"column:revenue"`
	TransactionCount int64           `gorm:"column:transaction_count"`
}

// TransactionFilter narrows List results. Zero values mean "any".
type TransactionFilter struct {
	JurisdictionKey string
	CustomerID      string
	From            *time.Time
	To              *time.Time
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	List(ctx context.Context, filter TransactionFilter, page, limit int) ([]model.Transaction, int64, error)
	SalesByJurisdiction(ctx context.Context, from, to time.Time) ([]SalesRow, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Transaction{}).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var tx model.Transaction
	if err := GetDB(ctx, r.db).First(&tx, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &tx, nil
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter, page, limit int) ([]model.Transaction, int64, error) {
	var txs []model.Transaction
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Transaction{})
	if filter.JurisdictionKey != "" {
		query = query.Where("jurisdiction_key = ?", filter.JurisdictionKey)
	}
	if filter.CustomerID != "" {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.From != nil {
		query = query.Where("transaction_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("transaction_date <= ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("transaction_date desc").Offset(offset(page, limit)).Limit(limit).Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// SalesByJurisdiction sums pre-tax revenue and counts transactions per key within [from, to].
func (r *transactionRepository) SalesByJurisdiction(ctx context.Context, from, to time.Time) ([]SalesRow, error) {
	query := `
		SELECT
			t.jurisdiction_key AS jurisdiction_key,
			COALESCE(SUM(t.subtotal), 0) AS revenue,
			COUNT(*) AS transaction_count
		FROM transactions t
		WHERE t.transaction_date >= $1
		  AND t.transaction_date <= $2
		GROUP BY t.jurisdiction_key
		ORDER BY t.jurisdiction_key
	`

	var rows []SalesRow
	if err := GetDB(ctx, r.db).Raw(query, from, to).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query sales by jurisdiction: %w", err)
	}
	return rows, nil
}
