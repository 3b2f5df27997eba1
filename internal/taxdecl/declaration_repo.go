package taxdecl

import (
	"context"

	"gorm.io/gorm"

	"go-payaudit/internal/tenant"
)

//go:generate mockgen -source=declaration_repo.go -destination=mock/declaration_repo_mock.go -package=mock

// Store is the read boundary for official filings. The engine only ever
// reads from it.
type Store interface {
	FindByPeriod(ctx context.Context, companyID string, period string) ([]Declaration, error)
}

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) FindByPeriod(ctx context.Context, companyID string, period string) ([]Declaration, error) {
	var decls []Declaration
	err := s.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("period = ?", period).
		Preload("Values").
		Order("filed_at ASC").
		Find(&decls).Error
	return decls, err
}
