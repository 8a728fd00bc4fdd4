package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/shopbooks/internal/persistence/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRecord is the gorm row for one collection snapshot.
type SnapshotRecord struct {
	StoreKey   string         `gorm:"primaryKey;type:varchar(191)"`
	Collection string         `gorm:"primaryKey;type:varchar(64)"`
	Revision   string         `gorm:"type:varchar(32);not null"`
	Records    int            `gorm:"not null;default:0"`
	Payload    datatypes.JSON `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

func (SnapshotRecord) TableName() string { return "collection_snapshots" }

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Save(ctx context.Context, s domain.Snapshot) error {
	if s.StoreKey == "" || s.Collection == "" {
		return domain.ErrInvalidSnapshot
	}
	payload := s.Payload
	if len(payload) == 0 {
		payload = []byte("[]")
	}
	row := SnapshotRecord{
		StoreKey:   s.StoreKey,
		Collection: s.Collection,
		Revision:   s.Revision,
		Records:    s.Records,
		Payload:    datatypes.JSON(payload),
		UpdatedAt:  s.UpdatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_key"}, {Name: "collection"}},
		DoUpdates: clause.AssignmentColumns([]string{"revision", "records", "payload", "updated_at"}),
	}).Create(&row).Error
}

func (r *repo) Load(ctx context.Context, storeKey, collection string) (domain.Snapshot, error) {
	var row SnapshotRecord
	err := r.db.WithContext(ctx).
		Where("store_key = ? AND collection = ?", storeKey, collection).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{
		StoreKey:   row.StoreKey,
		Collection: row.Collection,
		Revision:   row.Revision,
		Records:    row.Records,
		Payload:    []byte(row.Payload),
		UpdatedAt:  row.UpdatedAt,
	}, nil
}
