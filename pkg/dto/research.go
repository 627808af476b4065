package dto

import (
	"encoding/json"
	"fmt"

	"jittr/pkg/domain"
)

// Wire discriminator values for the research representation variants.
const (
	TypeBrandResearch    = "BRAND"
	TypeLearningResearch = "LEARNING"
)

// ResearchCoreDTO carries the fields shared by every research
// representation variant.
type ResearchCoreDTO struct {
	ID     int64                `json:"id"`
	Name   string               `json:"name" validate:"required,min=3,max=32"`
	State  domain.ResearchState `json:"state" validate:"required,oneof=BRANDNAME LEARNING TREE PAYMENT PROCESSING READY"`
	Jitter *JitterDTO           `json:"jitter" validate:"required,structonly"`
}

// ResearchDTO is the variant-typed research representation. The concrete
// variant is selected by the record's lifecycle state, never guessed.
type ResearchDTO interface {
	Core() *ResearchCoreDTO
	researchDTOVariant()
}

// BrandResearchDTO represents a research record in the brand-name stage.
type BrandResearchDTO struct {
	ResearchCoreDTO
}

// LearningResearchDTO represents a research record in the learning stage.
type LearningResearchDTO struct {
	ResearchCoreDTO
}

func (d *BrandResearchDTO) Core() *ResearchCoreDTO    { return &d.ResearchCoreDTO }
func (d *LearningResearchDTO) Core() *ResearchCoreDTO { return &d.ResearchCoreDTO }

func (*BrandResearchDTO) researchDTOVariant()    {}
func (*LearningResearchDTO) researchDTOVariant() {}

type taggedResearch struct {
	Type string `json:"type"`
	ResearchCoreDTO
}

func (d *BrandResearchDTO) MarshalJSON() ([]byte, error) {
	return json.Marshal(taggedResearch{Type: TypeBrandResearch, ResearchCoreDTO: d.ResearchCoreDTO})
}

func (d *LearningResearchDTO) MarshalJSON() ([]byte, error) {
	return json.Marshal(taggedResearch{Type: TypeLearningResearch, ResearchCoreDTO: d.ResearchCoreDTO})
}

// ResolveResearchDTO maps a lifecycle state to the constructor for its
// concrete representation variant. Defined only for BRANDNAME and
// LEARNING; every other state is an unsupported-state fault.
func ResolveResearchDTO(state domain.ResearchState) (func(ResearchCoreDTO) ResearchDTO, error) {
	switch state {
	case domain.StateBrandname:
		return func(c ResearchCoreDTO) ResearchDTO { return &BrandResearchDTO{c} }, nil
	case domain.StateLearning:
		return func(c ResearchCoreDTO) ResearchDTO { return &LearningResearchDTO{c} }, nil
	default:
		return nil, &domain.UnsupportedStateError{State: state}
	}
}

// UnmarshalResearch decodes an incoming research payload, picking the
// variant by the declared state.
func UnmarshalResearch(data []byte) (ResearchDTO, error) {
	var core ResearchCoreDTO
	if err := json.Unmarshal(data, &core); err != nil {
		return nil, fmt.Errorf("decode research: %w", err)
	}
	build, err := ResolveResearchDTO(core.State)
	if err != nil {
		return nil, err
	}
	return build(core), nil
}

// FromResearch maps a stored research record to the representation
// variant matching its state, then maps the nested owner separately.
func FromResearch(r domain.Research) (ResearchDTO, error) {
	core := r.Core()
	build, err := ResolveResearchDTO(core.State)
	if err != nil {
		return nil, err
	}
	owner := FromJitter(core.Jitter)
	return build(ResearchCoreDTO{
		ID:     core.ID,
		Name:   core.Name,
		State:  core.State,
		Jitter: &owner,
	}), nil
}

// ToResearch maps the representation to the entity variant matching its
// declared state.
func ToResearch(d ResearchDTO) (domain.Research, error) {
	core := d.Core()
	build, err := domain.ResolveResearch(core.State)
	if err != nil {
		return nil, err
	}
	entity := domain.ResearchCore{
		ID:    core.ID,
		Name:  core.Name,
		State: core.State,
	}
	if core.Jitter != nil {
		entity.Jitter = ToJitter(*core.Jitter)
	}
	return build(entity), nil
}
