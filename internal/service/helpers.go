package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// withTx runs fn inside a transaction, rolling back when fn fails.
func withTx(ctx context.Context, provider txProvider, fn func(tx *sqlx.Tx) error) error {
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

// asInternal keeps typed errors and wraps anything else as an internal error.
func asInternal(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func pagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func appendReason(existing, addition string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}

func sortByNumber(items []models.Installment) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Number < items[j].Number })
}

func pointersTo(items []models.Installment) []*models.Installment {
	ptrs := make([]*models.Installment, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	return ptrs
}

func splitBenefitItems(items []models.BenefitItem) (scholarships, discounts []string) {
	for _, item := range items {
		switch item.Kind {
		case models.BenefitScholarship:
			scholarships = append(scholarships, item.BenefitID)
		case models.BenefitDiscount:
			discounts = append(discounts, item.BenefitID)
		}
	}
	return scholarships, discounts
}
