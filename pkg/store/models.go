package store

import (
	"time"

	"jittr/pkg/domain"
)

// GORM models used for persistence.

type JitterModel struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Username string `gorm:"uniqueIndex;not null;size:32"`
	Password string `gorm:"not null;size:60"`
	FullName string `gorm:"column:fullname;size:32"`
	Email    string
	Role     string `gorm:"not null"`
}

func (JitterModel) TableName() string { return "jitters" }

// JittleModel carries a client-assigned id (the originating post id).
type JittleModel struct {
	ID         int64       `gorm:"primaryKey"`
	JitterID   int64       `gorm:"not null;index"`
	Jitter     JitterModel `gorm:"foreignKey:JitterID"`
	Message    string
	PostedTime time.Time `gorm:"column:postedtime"`
	Author     string
	Judgment   string `gorm:"not null"`
	TQueue     string `gorm:"column:tqueue;not null;index"`
	Country    string
	Latitude   float32
	Longitude  float32
}

func (JittleModel) TableName() string { return "jittles" }

// ResearchModel keeps every research variant in one table; the state
// column is the discriminant.
type ResearchModel struct {
	ID       int64       `gorm:"primaryKey;autoIncrement"`
	State    string      `gorm:"not null;index"`
	Name     string      `gorm:"not null;size:32"`
	JitterID int64       `gorm:"not null;index"`
	Jitter   JitterModel `gorm:"foreignKey:JitterID"`
}

func (ResearchModel) TableName() string { return "researches" }

func jitterToModel(j domain.Jitter) JitterModel {
	return JitterModel{
		ID:       j.ID,
		Username: j.Username,
		Password: j.Password,
		FullName: j.FullName,
		Email:    j.Email,
		Role:     string(j.Role),
	}
}

func jitterFromModel(m JitterModel) domain.Jitter {
	return domain.Jitter{
		ID:       m.ID,
		Username: m.Username,
		Password: m.Password,
		FullName: m.FullName,
		Email:    m.Email,
		Role:     domain.Role(m.Role),
	}
}

func jittleToModel(j domain.Jittle) JittleModel {
	return JittleModel{
		ID:         j.ID,
		JitterID:   j.Jitter.ID,
		Message:    j.Message,
		PostedTime: j.PostedTime,
		Author:     j.Author,
		Judgment:   string(j.Judgment),
		TQueue:     string(j.TQueue),
		Country:    j.Country,
		Latitude:   j.Latitude,
		Longitude:  j.Longitude,
	}
}

func jittleFromModel(m JittleModel) domain.Jittle {
	return domain.Jittle{
		ID:         m.ID,
		Jitter:     jitterFromModel(m.Jitter),
		Message:    m.Message,
		PostedTime: m.PostedTime,
		Author:     m.Author,
		Judgment:   domain.Judgment(m.Judgment),
		TQueue:     domain.TargetQueue(m.TQueue),
		Country:    m.Country,
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
	}
}

func researchToModel(r domain.Research) ResearchModel {
	core := r.Core()
	return ResearchModel{
		ID:       core.ID,
		State:    string(core.State),
		Name:     core.Name,
		JitterID: core.Jitter.ID,
	}
}

// researchFromModel resolves the concrete variant from the stored state.
// A state with no variant is a mapping fault, never a default record.
func researchFromModel(m ResearchModel) (domain.Research, error) {
	build, err := domain.ResolveResearch(domain.ResearchState(m.State))
	if err != nil {
		return nil, err
	}
	return build(domain.ResearchCore{
		ID:     m.ID,
		Name:   m.Name,
		State:  domain.ResearchState(m.State),
		Jitter: jitterFromModel(m.Jitter),
	}), nil
}
