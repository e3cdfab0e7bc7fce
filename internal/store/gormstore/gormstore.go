// Package gormstore maps plant documents onto two SQL tables through GORM:
// one row per plant and one row per category tag.
package gormstore

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/store"
)

// PlantRow is the catalog_plant table
type PlantRow struct {
	ID                string    `gorm:"primaryKey;size:32"`
	Name              string    `gorm:"size:100;index"`
	NameFold          string    `gorm:"size:400;index"`
	Price             float64   `gorm:"index"`
	StockAvailable    bool      `gorm:"index"`
	Description       string    `gorm:"size:500"`
	ImageURL          string    `gorm:"size:1024"`
	CareLevel         string    `gorm:"size:16"`
	LightRequirement  string    `gorm:"size:32"`
	WateringFrequency string    `gorm:"size:32"`
	Height            string    `gorm:"size:64"`
	CreatedAt         time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime:false"`
}

// TableName Specify table name
func (PlantRow) TableName() string {
	return "catalog_plant"
}

// TagRow is the catalog_plant_tag table
type TagRow struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	PlantID  string `gorm:"size:32;index"`
	Position int
	Tag      string `gorm:"size:200;index"`
	TagFold  string `gorm:"size:800;index"`
}

// TableName Specify table name
func (TagRow) TableName() string {
	return "catalog_plant_tag"
}

// Tables lists the models managed by Migrate
var Tables = []interface{}{
	&PlantRow{},
	&TagRow{},
}

// Migrate creates or updates the catalog tables and fills the folded
// search columns of rows written before they existed
func Migrate(db *gorm.DB) error {
	if err := db.Migrator().AutoMigrate(Tables...); err != nil {
		return err
	}
	return backfillFolds(db)
}

const backfillBatch = 200

func backfillFolds(db *gorm.DB) error {
	var plants []PlantRow
	err := db.Where("name_fold = '' AND name <> ''").
		FindInBatches(&plants, backfillBatch, func(*gorm.DB, int) error {
			for _, r := range plants {
				err := db.Model(&PlantRow{}).Where("id = ?", r.ID).
					Update("name_fold", query.Fold(r.Name)).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
	if err != nil {
		return errors.Wrap(err, "backfill plant name folds")
	}
	var tags []TagRow
	err = db.Where("tag_fold = '' AND tag <> ''").
		FindInBatches(&tags, backfillBatch, func(*gorm.DB, int) error {
			for _, r := range tags {
				err := db.Model(&TagRow{}).Where("id = ?", r.ID).
					Update("tag_fold", query.Fold(r.Tag)).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
	return errors.Wrap(err, "backfill tag folds")
}

type Option func(*Store)

// WithClock overrides the timestamp source
func WithClock(c store.Clock) Option {
	return func(s *Store) { s.clock = c }
}

type Store struct {
	db    *gorm.DB
	ids   store.IDGenerator
	clock store.Clock
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB, ids store.IDGenerator, opts ...Option) *Store {
	s := &Store{db: db, ids: ids}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) isPostgres() bool {
	return strings.EqualFold(s.db.Dialector.Name(), "postgres")
}

func toRow(p domain.Plant) (PlantRow, []TagRow) {
	row := PlantRow{
		ID:                p.ID,
		Name:              p.Name,
		NameFold:          query.Fold(p.Name),
		Price:             p.Price,
		StockAvailable:    p.StockAvailable,
		Description:       p.Description,
		ImageURL:          p.ImageURL,
		CareLevel:         string(p.CareLevel),
		LightRequirement:  string(p.LightRequirement),
		WateringFrequency: string(p.WateringFrequency),
		Height:            p.Height,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	tags := make([]TagRow, 0, len(p.Categories))
	for i, c := range p.Categories {
		tags = append(tags, TagRow{PlantID: p.ID, Position: i, Tag: c, TagFold: query.Fold(c)})
	}
	return row, tags
}

func fromRow(row PlantRow, tags []string) domain.Plant {
	if tags == nil {
		tags = []string{}
	}
	return domain.Plant{
		ID:                row.ID,
		Name:              row.Name,
		Price:             row.Price,
		Categories:        tags,
		StockAvailable:    row.StockAvailable,
		Description:       row.Description,
		ImageURL:          row.ImageURL,
		CareLevel:         domain.CareLevel(row.CareLevel),
		LightRequirement:  domain.LightRequirement(row.LightRequirement),
		WateringFrequency: domain.WateringFrequency(row.WateringFrequency),
		Height:            row.Height,
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}
}

// escapeLike protects the LIKE wildcards so the term matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

const tagExists = "EXISTS (SELECT 1 FROM catalog_plant_tag t WHERE t.plant_id = catalog_plant.id AND "

func (s *Store) scope(q query.Query) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if c := q.Category(); c != "" {
			db = db.Where(tagExists+"t.tag = ?)", c)
		}
		lo, hi := q.PriceRange()
		if lo != nil {
			db = db.Where("price >= ?", *lo)
		}
		if hi != nil {
			db = db.Where("price <= ?", *hi)
		}
		if q.InStockOnly() {
			db = db.Where("stock_available = ?", true)
		}
		// SQL LOWER and ILIKE only fold ASCII on some engines, so match
		// against the columns folded at write time
		if term := q.FoldedSearch(); term != "" {
			pattern := "%" + escapeLike(term) + "%"
			db = db.Where("(name_fold LIKE ? ESCAPE '\\' OR "+tagExists+"t.tag_fold LIKE ? ESCAPE '\\'))", pattern, pattern)
		}
		return db
	}
}

// loadTags returns plant id -> tags in stored order
func loadTags(db *gorm.DB, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []TagRow
	if err := db.Where("plant_id IN ?", ids).Order("plant_id, position").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.PlantID] = append(out[r.PlantID], r.Tag)
	}
	return out, nil
}

func (s *Store) Find(ctx context.Context, q query.Query) ([]domain.Plant, error) {
	db := s.db.WithContext(ctx)
	var rows []PlantRow
	err := db.Model(&PlantRow{}).
		Scopes(s.scope(q)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	tags, err := loadTags(db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Plant, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r, tags[r.ID]))
	}
	// timestamps read back from some drivers lose their zone; keep the
	// order identical to the other engines
	slices.SortStableFunc(out, query.Compare)
	return out, nil
}

func (s *Store) get(db *gorm.DB, id string) (domain.Plant, error) {
	var row PlantRow
	err := db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Plant{}, store.ErrNotFound
	} else if err != nil {
		return domain.Plant{}, err
	}
	tags, err := loadTags(db, []string{id})
	if err != nil {
		return domain.Plant{}, err
	}
	return fromRow(row, tags[id]), nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Plant, error) {
	return s.get(s.db.WithContext(ctx), id)
}

func (s *Store) Insert(ctx context.Context, p domain.Plant) (domain.Plant, error) {
	p = store.Stamp(p, s.ids, s.clock)
	row, tags := toRow(p)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if len(tags) > 0 {
			return tx.Create(&tags).Error
		}
		return nil
	})
	if err != nil {
		return domain.Plant{}, err
	}
	return p, nil
}

func (s *Store) Update(ctx context.Context, id string, fn store.MutateFunc) (domain.Plant, error) {
	var next domain.Plant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		read := tx
		if s.isPostgres() {
			read = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		cur, err := s.get(read, id)
		if err != nil {
			return err
		}
		next, err = store.ApplyUpdate(cur, fn, s.clock)
		if err != nil {
			return err
		}
		row, tags := toRow(next)
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("plant_id = ?", id).Delete(&TagRow{}).Error; err != nil {
			return err
		}
		if len(tags) > 0 {
			return tx.Create(&tags).Error
		}
		return nil
	})
	if err != nil {
		return domain.Plant{}, err
	}
	return next, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&PlantRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return tx.Where("plant_id = ?", id).Delete(&TagRow{}).Error
	})
}

func (s *Store) Categories(ctx context.Context) ([]string, error) {
	tags := make([]string, 0)
	err := s.db.WithContext(ctx).Model(&TagRow{}).Distinct("tag").Pluck("tag", &tags).Error
	return tags, err
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&PlantRow{}).Count(&n).Error
	return n, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
