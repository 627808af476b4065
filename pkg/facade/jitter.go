package facade

import (
	"context"

	"jittr/pkg/domain"
	"jittr/pkg/dto"
	"jittr/pkg/store"
	"jittr/pkg/validate"
)

// JitterFacade exposes the CRUD contract for jitter accounts plus the
// username-keyed merge upsert.
type JitterFacade struct {
	*Facade[domain.Jitter, dto.JitterDTO]
	jitters store.JitterRepository
}

// NewJitterFacade builds the jitter facade. The jitter repository doubles
// as the identity resolver for its own family.
func NewJitterFacade(jitters store.JitterRepository, check *validate.Validator) *JitterFacade {
	return &JitterFacade{
		Facade:  New[domain.Jitter, dto.JitterDTO](jitters, jitters, jitterConverter{}, check),
		jitters: jitters,
	}
}

// FindByPrincipal returns the representation of the caller's own account.
func (f *JitterFacade) FindByPrincipal(ctx context.Context, caller string) (dto.JitterDTO, error) {
	jitter, err := f.ResolveIdentity(ctx, caller)
	if err != nil {
		return dto.JitterDTO{}, err
	}
	return dto.FromJitter(jitter), nil
}

// Merge upserts a jitter keyed by username, independent of id. The caller
// must resolve and the representation must be valid, but the merge itself
// never overwrites an existing credential or role: an existing account
// keeps both, a new account starts with the default placeholder
// credential and the member role.
func (f *JitterFacade) Merge(ctx context.Context, caller string, d dto.JitterDTO) (dto.JitterDTO, error) {
	if _, err := f.ResolveIdentity(ctx, caller); err != nil {
		return dto.JitterDTO{}, err
	}
	if fieldErrs := f.check.Check(d); fieldErrs != nil {
		return dto.JitterDTO{}, &ValidationError{Fields: fieldErrs}
	}
	merged, err := f.jitters.Merge(ctx, dto.ToJitter(d))
	if err != nil {
		return dto.JitterDTO{}, err
	}
	return dto.FromJitter(merged), nil
}

type jitterConverter struct{}

func (jitterConverter) ToEntity(d dto.JitterDTO) (domain.Jitter, error) {
	return dto.ToJitter(d), nil
}

func (jitterConverter) ToDTO(j domain.Jitter) (dto.JitterDTO, error) {
	return dto.FromJitter(j), nil
}

func (jitterConverter) EntityID(j domain.Jitter) int64 { return j.ID }
