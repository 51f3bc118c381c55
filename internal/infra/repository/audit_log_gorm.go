package repository

import (
	"context"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"

	"gorm.io/gorm"
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(&log).Error; err != nil {
		return translateError(err)
	}
	return nil
}
