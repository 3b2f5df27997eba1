package chartofaccounts

import (
	"context"
	"errors"

	"gorm.io/gorm"

	chartofaccountserrors "go-payaudit/internal/chartofaccounts/errors"
	"go-payaudit/internal/tenant"
)

//go:generate mockgen -source=coa_repo.go -destination=mock/coa_repo_mock.go -package=mock

// Provider is the read boundary for posting account codes.
type Provider interface {
	Get(ctx context.Context, companyID string) (*AccountMapping, error)
}

type provider struct {
	db *gorm.DB
}

func NewProvider(db *gorm.DB) Provider {
	return &provider{db: db}
}

func (p *provider) Get(ctx context.Context, companyID string) (*AccountMapping, error) {
	var mapping AccountMapping
	err := p.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chartofaccountserrors.ErrChartOfAccountsMissing
		}
		return nil, err
	}
	return &mapping, nil
}
