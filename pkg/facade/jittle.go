package facade

import (
	"context"

	"jittr/pkg/domain"
	"jittr/pkg/dto"
	"jittr/pkg/permission"
	"jittr/pkg/store"
	"jittr/pkg/validate"
)

const defaultRecentCount = 10

// JittleFacade exposes the CRUD contract for jittles plus the
// owner-scoped pull and the permission-checked delete.
type JittleFacade struct {
	*Facade[domain.Jittle, dto.JittleDTO]
	jittles store.JittleRepository
	perms   permission.Evaluator
}

// NewJittleFacade builds the jittle facade.
func NewJittleFacade(jittles store.JittleRepository, jitters store.JitterRepository,
	check *validate.Validator) *JittleFacade {
	return &JittleFacade{
		Facade:  New[domain.Jittle, dto.JittleDTO](jittles, jitters, jittleConverter{}, check),
		jittles: jittles,
	}
}

// Pull atomically fetches and removes the caller's jittles, optionally
// narrowed to one target queue, returning the pre-delete representations.
func (f *JittleFacade) Pull(ctx context.Context, caller string, queue *domain.TargetQueue) ([]dto.JittleDTO, error) {
	if _, err := f.ResolveIdentity(ctx, caller); err != nil {
		return nil, err
	}
	pulled, err := f.jittles.Pull(ctx, caller, queue)
	if err != nil {
		return nil, err
	}
	return f.toDTOs(pulled)
}

// FindRecent returns the newest jittles by posted time. A non-positive
// count falls back to the default of ten.
func (f *JittleFacade) FindRecent(ctx context.Context, count int) ([]dto.JittleDTO, error) {
	if count <= 0 {
		count = defaultRecentCount
	}
	recent, err := f.jittles.FindRecent(ctx, count)
	if err != nil {
		return nil, err
	}
	return f.toDTOs(recent)
}

// RemoveOwned deletes one jittle after checking that the acting identity
// may delete it: admins always, owners when they carry the member role.
func (f *JittleFacade) RemoveOwned(ctx context.Context, ident permission.Identity, id int64) error {
	jittle, ok, err := f.jittles.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{ID: id}
	}
	allowed, err := f.perms.HasPermission(ident, jittle, permission.ActionDelete)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return f.jittles.DeleteByID(ctx, id)
}

type jittleConverter struct{}

func (jittleConverter) ToEntity(d dto.JittleDTO) (domain.Jittle, error) {
	return dto.ToJittle(d), nil
}

func (jittleConverter) ToDTO(j domain.Jittle) (dto.JittleDTO, error) {
	return dto.FromJittle(j), nil
}

func (jittleConverter) EntityID(j domain.Jittle) int64 { return j.ID }
