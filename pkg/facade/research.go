package facade

import (
	"context"

	"jittr/pkg/domain"
	"jittr/pkg/dto"
	"jittr/pkg/store"
	"jittr/pkg/validate"
)

// ResearchFacade exposes the CRUD contract for the variant-typed research
// family. Conversion in both directions goes through the state resolver:
// the lifecycle state picks the concrete variant, and a state with no
// variant surfaces as an unsupported-state fault, never a blank record.
type ResearchFacade struct {
	*Facade[domain.Research, dto.ResearchDTO]
	research store.ResearchRepository
}

// NewResearchFacade builds the research facade.
func NewResearchFacade(research store.ResearchRepository, jitters store.JitterRepository,
	check *validate.Validator) *ResearchFacade {
	return &ResearchFacade{
		Facade:   New[domain.Research, dto.ResearchDTO](research, jitters, researchConverter{}, check),
		research: research,
	}
}

// FindByUsername returns the research records owned by username together
// with the shared default-owner records. The username must resolve.
func (f *ResearchFacade) FindByUsername(ctx context.Context, username string) ([]dto.ResearchDTO, error) {
	if _, err := f.ResolveIdentity(ctx, username); err != nil {
		return nil, err
	}
	found, err := f.research.FindByOwners(ctx, []string{username, DefaultUsername})
	if err != nil {
		return nil, err
	}
	return f.toDTOs(found)
}

// FindByUsernameDefault returns only the shared default-owner records,
// used when the boundary supplies no username.
func (f *ResearchFacade) FindByUsernameDefault(ctx context.Context) ([]dto.ResearchDTO, error) {
	found, err := f.research.FindByOwners(ctx, []string{DefaultUsername})
	if err != nil {
		return nil, err
	}
	return f.toDTOs(found)
}

type researchConverter struct{}

func (researchConverter) ToEntity(d dto.ResearchDTO) (domain.Research, error) {
	return dto.ToResearch(d)
}

func (researchConverter) ToDTO(r domain.Research) (dto.ResearchDTO, error) {
	return dto.FromResearch(r)
}

func (researchConverter) EntityID(r domain.Research) int64 { return r.Core().ID }
