package dto

import (
	"math"
	"time"

	"jittr/pkg/domain"
)

// JittleDTO is the boundary representation of a jittle. Coordinates are
// pointers because JSON has no NaN: absent means unknown, and the entity
// side keeps its NaN sentinel.
type JittleDTO struct {
	ID         int64              `json:"id" validate:"required"`
	Jitter     *JitterDTO         `json:"jitter" validate:"required,structonly"`
	Message    string             `json:"message" validate:"required,max=140"`
	PostedTime time.Time          `json:"postedTime"`
	Author     string             `json:"author" validate:"omitempty,handle"`
	Judgment   domain.Judgment    `json:"judgment" validate:"required,oneof=VERY_NEGATIVE NEGATIVE NEUTRAL NONE POSITIVE VERY_POSITIVE"`
	TQueue     domain.TargetQueue `json:"tQueue" validate:"required,oneof=TRAIN_RAW TRAIN_GRADED BUILD_MAP VIEW_RAW VIEW_GRADED"`
	Country    string             `json:"country"`
	Latitude   *float32           `json:"latitude,omitempty"`
	Longitude  *float32           `json:"longitude,omitempty"`
}

// FromJittle maps a stored jittle and its nested owner to the
// representation.
func FromJittle(j domain.Jittle) JittleDTO {
	owner := FromJitter(j.Jitter)
	return JittleDTO{
		ID:         j.ID,
		Jitter:     &owner,
		Message:    j.Message,
		PostedTime: j.PostedTime,
		Author:     j.Author,
		Judgment:   j.Judgment,
		TQueue:     j.TQueue,
		Country:    j.Country,
		Latitude:   coordOut(j.Latitude),
		Longitude:  coordOut(j.Longitude),
	}
}

// ToJittle maps the representation to a storage entity, applying the
// domain defaults for judgment and coordinates when absent.
func ToJittle(d JittleDTO) domain.Jittle {
	j := domain.Jittle{
		ID:         d.ID,
		Message:    d.Message,
		PostedTime: d.PostedTime,
		Author:     d.Author,
		Judgment:   d.Judgment,
		TQueue:     d.TQueue,
		Country:    d.Country,
		Latitude:   coordIn(d.Latitude),
		Longitude:  coordIn(d.Longitude),
	}
	if j.Judgment == "" {
		j.Judgment = domain.JudgmentNone
	}
	if d.Jitter != nil {
		j.Jitter = ToJitter(*d.Jitter)
	}
	return j
}

func coordOut(v float32) *float32 {
	if math.IsNaN(float64(v)) {
		return nil
	}
	return &v
}

func coordIn(v *float32) float32 {
	if v == nil {
		return float32(math.NaN())
	}
	return *v
}
