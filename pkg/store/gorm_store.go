package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jittr/pkg/domain"
)

// DefaultMergePassword is the credential placeholder a merge-created
// jitter starts with. It matches no bcrypt hash, so the account cannot
// log in until a real credential is set.
const DefaultMergePassword = ""

// GormStore bundles the per-family repositories over one GORM/Postgres
// connection.
type GormStore struct {
	db       *gorm.DB
	Jitters  *GormJitterRepository
	Jittles  *GormJittleRepository
	Research *GormResearchRepository
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&JitterModel{}, &JittleModel{}, &ResearchModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{
		db:       db,
		Jitters:  &GormJitterRepository{db: db},
		Jittles:  &GormJittleRepository{db: db},
		Research: &GormResearchRepository{db: db},
	}, nil
}

// GormJitterRepository implements JitterRepository.
type GormJitterRepository struct {
	db *gorm.DB
}

var jitterUpdateColumns = []string{"username", "password", "fullname", "email", "role"}

// Save inserts or overwrites a jitter keyed by id.
func (r *GormJitterRepository) Save(ctx context.Context, j domain.Jitter) (domain.Jitter, error) {
	model := jitterToModel(j)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(jitterUpdateColumns),
	}).Create(&model).Error
	if err != nil {
		return domain.Jitter{}, err
	}
	return jitterFromModel(model), nil
}

// SaveAll persists the whole batch in one transaction; nothing commits
// when any element fails.
func (r *GormJitterRepository) SaveAll(ctx context.Context, js []domain.Jitter) error {
	if len(js) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, j := range js {
			model := jitterToModel(j)
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(jitterUpdateColumns),
			}).Create(&model).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormJitterRepository) FindByID(ctx context.Context, id int64) (domain.Jitter, bool, error) {
	var model JitterModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Jitter{}, false, nil
		}
		return domain.Jitter{}, false, err
	}
	return jitterFromModel(model), true, nil
}

func (r *GormJitterRepository) FindByUsername(ctx context.Context, username string) (domain.Jitter, bool, error) {
	var model JitterModel
	err := r.db.WithContext(ctx).Where("lower(username) = lower(?)", username).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Jitter{}, false, nil
		}
		return domain.Jitter{}, false, err
	}
	return jitterFromModel(model), true, nil
}

func (r *GormJitterRepository) FindAll(ctx context.Context) ([]domain.Jitter, error) {
	var models []JitterModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Jitter, 0, len(models))
	for _, m := range models {
		out = append(out, jitterFromModel(m))
	}
	return out, nil
}

func (r *GormJitterRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&JitterModel{}, "id = ?", id).Error
}

func (r *GormJitterRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&JitterModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Merge upserts keyed by username inside one transaction. An existing row
// keeps password and role; a missing row is created with the default
// credential placeholder and the member role.
func (r *GormJitterRepository) Merge(ctx context.Context, j domain.Jitter) (domain.Jitter, error) {
	var out domain.Jitter
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model JitterModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("lower(username) = lower(?)", j.Username).
			First(&model).Error
		switch {
		case err == nil:
			model.FullName = j.FullName
			model.Email = j.Email
			if err := tx.Save(&model).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			model = JitterModel{
				Username: j.Username,
				Password: DefaultMergePassword,
				FullName: j.FullName,
				Email:    j.Email,
				Role:     string(domain.RoleJitter),
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		default:
			return err
		}
		out = jitterFromModel(model)
		return nil
	})
	if err != nil {
		return domain.Jitter{}, err
	}
	return out, nil
}

// GormJittleRepository implements JittleRepository.
type GormJittleRepository struct {
	db *gorm.DB
}

var jittleUpdateColumns = []string{
	"jitter_id", "message", "postedtime", "author",
	"judgment", "tqueue", "country", "latitude", "longitude",
}

// Save inserts or overwrites a jittle keyed by its client-assigned id.
func (r *GormJittleRepository) Save(ctx context.Context, j domain.Jittle) (domain.Jittle, error) {
	model := jittleToModel(j)
	err := r.db.WithContext(ctx).Omit("Jitter").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(jittleUpdateColumns),
	}).Create(&model).Error
	if err != nil {
		return domain.Jittle{}, err
	}
	model.Jitter = jitterToModel(j.Jitter)
	return jittleFromModel(model), nil
}

// SaveAll persists the whole batch in one transaction; nothing commits
// when any element fails.
func (r *GormJittleRepository) SaveAll(ctx context.Context, js []domain.Jittle) error {
	if len(js) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, j := range js {
			model := jittleToModel(j)
			err := tx.Omit("Jitter").Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(jittleUpdateColumns),
			}).Create(&model).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormJittleRepository) FindByID(ctx context.Context, id int64) (domain.Jittle, bool, error) {
	var model JittleModel
	err := r.db.WithContext(ctx).Preload("Jitter").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Jittle{}, false, nil
		}
		return domain.Jittle{}, false, err
	}
	return jittleFromModel(model), true, nil
}

func (r *GormJittleRepository) FindAll(ctx context.Context) ([]domain.Jittle, error) {
	return r.list(ctx, "id ASC")
}

func (r *GormJittleRepository) FindByOwner(ctx context.Context, username string) ([]domain.Jittle, error) {
	return r.list(ctx, "jittles.id ASC",
		"jitter_id IN (SELECT id FROM jitters WHERE lower(username) = lower(?))", username)
}

// FindRecent returns the newest jittles by posted time.
func (r *GormJittleRepository) FindRecent(ctx context.Context, limit int) ([]domain.Jittle, error) {
	var models []JittleModel
	err := r.db.WithContext(ctx).Preload("Jitter").
		Order("postedtime DESC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	return jittlesFromModels(models), nil
}

func (r *GormJittleRepository) list(ctx context.Context, order string, conds ...any) ([]domain.Jittle, error) {
	var models []JittleModel
	tx := r.db.WithContext(ctx).Preload("Jitter").Order(order)
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	return jittlesFromModels(models), nil
}

func (r *GormJittleRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&JittleModel{}, "id = ?", id).Error
}

func (r *GormJittleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&JittleModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Pull fetches then deletes the matched set inside one transaction, with
// the matched rows locked so a concurrent pull for the same owner and
// queue observes either all of them or none.
func (r *GormJittleRepository) Pull(ctx context.Context, username string, queue *domain.TargetQueue) ([]domain.Jittle, error) {
	var out []domain.Jittle
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Jitter").
			Where("jitter_id IN (SELECT id FROM jitters WHERE lower(username) = lower(?))", username)
		if queue != nil {
			q = q.Where("tqueue = ?", string(*queue))
		}
		var models []JittleModel
		if err := q.Order("id ASC").Find(&models).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		ids := make([]int64, 0, len(models))
		for _, m := range models {
			ids = append(ids, m.ID)
		}
		if err := tx.Delete(&JittleModel{}, "id IN ?", ids).Error; err != nil {
			return err
		}
		out = jittlesFromModels(models)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func jittlesFromModels(models []JittleModel) []domain.Jittle {
	out := make([]domain.Jittle, 0, len(models))
	for _, m := range models {
		out = append(out, jittleFromModel(m))
	}
	return out
}

// GormResearchRepository implements ResearchRepository.
type GormResearchRepository struct {
	db *gorm.DB
}

// Save inserts or overwrites a research record keyed by id.
func (r *GormResearchRepository) Save(ctx context.Context, research domain.Research) (domain.Research, error) {
	model := researchToModel(research)
	err := r.db.WithContext(ctx).Omit("Jitter").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "name", "jitter_id"}),
	}).Create(&model).Error
	if err != nil {
		return nil, err
	}
	model.Jitter = jitterToModel(research.Core().Jitter)
	return researchFromModel(model)
}

func (r *GormResearchRepository) SaveAll(ctx context.Context, rs []domain.Research) error {
	if len(rs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, research := range rs {
			model := researchToModel(research)
			if err := tx.Omit("Jitter").Save(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormResearchRepository) FindByID(ctx context.Context, id int64) (domain.Research, bool, error) {
	var model ResearchModel
	err := r.db.WithContext(ctx).Preload("Jitter").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	research, err := researchFromModel(model)
	if err != nil {
		return nil, false, err
	}
	return research, true, nil
}

func (r *GormResearchRepository) FindAll(ctx context.Context) ([]domain.Research, error) {
	return r.list(ctx)
}

func (r *GormResearchRepository) FindByOwners(ctx context.Context, usernames []string) ([]domain.Research, error) {
	return r.list(ctx, "jitter_id IN (SELECT id FROM jitters WHERE lower(username) IN ?)", lowered(usernames))
}

func (r *GormResearchRepository) list(ctx context.Context, conds ...any) ([]domain.Research, error) {
	var models []ResearchModel
	tx := r.db.WithContext(ctx).Preload("Jitter").Order("id ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Research, 0, len(models))
	for _, m := range models {
		research, err := researchFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, research)
	}
	return out, nil
}

func lowered(usernames []string) []string {
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		out = append(out, strings.ToLower(u))
	}
	return out
}

func (r *GormResearchRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&ResearchModel{}, "id = ?", id).Error
}

func (r *GormResearchRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&ResearchModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
