// Package facade implements the CRUD contract shared by every entity
// family: resolve the caller identity, validate the representation,
// convert, persist, convert back. The generic core is instantiated once
// per family with hand-written converters; no reflective field mapping.
package facade

import (
	"context"

	"jittr/pkg/domain"
	"jittr/pkg/validate"
)

// DefaultID is the well-known record identifier used when the boundary
// supplies none.
const DefaultID int64 = 1

// DefaultUsername owns the shared sample records served to callers that
// have none of their own yet.
const DefaultUsername = "guest"

// Repository is the store port the generic facade drives. Save carries
// put semantics; SaveAll commits a batch atomically or not at all.
type Repository[E any] interface {
	Save(ctx context.Context, e E) (E, error)
	SaveAll(ctx context.Context, es []E) error
	FindByID(ctx context.Context, id int64) (E, bool, error)
	FindAll(ctx context.Context) ([]E, error)
	DeleteByID(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// IdentityResolver maps an authenticated caller name to its jitter.
type IdentityResolver interface {
	FindByUsername(ctx context.Context, username string) (domain.Jitter, bool, error)
}

// Converter maps between an entity family and its representation, both
// directions hand-written per family. EntityID exposes the identity used
// for duplicate detection in batches.
type Converter[E, D any] interface {
	ToEntity(d D) (E, error)
	ToDTO(e E) (D, error)
	EntityID(e E) int64
}

// Facade orchestrates the uniform CRUD operations for one entity family.
// It holds no per-call state: the caller identity is an argument to every
// operation that needs one, so concurrent calls cannot observe another
// caller's resolution.
type Facade[E, D any] struct {
	repo       Repository[E]
	identities IdentityResolver
	conv       Converter[E, D]
	check      *validate.Validator
}

// New builds a facade for one entity family.
func New[E, D any](repo Repository[E], identities IdentityResolver,
	conv Converter[E, D], check *validate.Validator) *Facade[E, D] {
	return &Facade[E, D]{repo: repo, identities: identities, conv: conv, check: check}
}

// ResolveIdentity maps the caller name to its stored jitter, failing with
// IdentityNotFoundError when absent. Every identity-bearing operation
// runs this first, before validation or persistence.
func (f *Facade[E, D]) ResolveIdentity(ctx context.Context, caller string) (domain.Jitter, error) {
	jitter, ok, err := f.identities.FindByUsername(ctx, caller)
	if err != nil {
		return domain.Jitter{}, err
	}
	if !ok {
		return domain.Jitter{}, &IdentityNotFoundError{Username: caller}
	}
	return jitter, nil
}

// Create validates and persists one representation, returning the stored
// result converted back. All field errors for the representation are
// collected before the operation fails.
func (f *Facade[E, D]) Create(ctx context.Context, caller string, d D) (D, error) {
	var zero D
	if _, err := f.ResolveIdentity(ctx, caller); err != nil {
		return zero, err
	}
	if fieldErrs := f.check.Check(d); fieldErrs != nil {
		return zero, &ValidationError{Fields: fieldErrs}
	}
	entity, err := f.conv.ToEntity(d)
	if err != nil {
		return zero, err
	}
	saved, err := f.repo.Save(ctx, entity)
	if err != nil {
		return zero, err
	}
	return f.conv.ToDTO(saved)
}

// CreateBatch validates and persists a batch. Validation short-circuits
// on the first nil or invalid element and nothing is persisted; a batch
// mapping the same identity twice fails with ErrDuplicateKey.
func (f *Facade[E, D]) CreateBatch(ctx context.Context, caller string, ds []*D) error {
	if _, err := f.ResolveIdentity(ctx, caller); err != nil {
		return err
	}
	entities := make([]E, 0, len(ds))
	seen := make(map[int64]struct{}, len(ds))
	for _, d := range ds {
		if d == nil {
			return &ValidationError{Fields: []validate.FieldError{
				{Field: "", Message: "value must not be null"},
			}}
		}
		if fieldErrs := f.check.Check(*d); fieldErrs != nil {
			return &ValidationError{Fields: fieldErrs}
		}
		entity, err := f.conv.ToEntity(*d)
		if err != nil {
			return err
		}
		if id := f.conv.EntityID(entity); id != 0 {
			if _, dup := seen[id]; dup {
				return ErrDuplicateKey
			}
			seen[id] = struct{}{}
		}
		entities = append(entities, entity)
	}
	return f.repo.SaveAll(ctx, entities)
}

// FindOne returns the representation of the record with the given id.
func (f *Facade[E, D]) FindOne(ctx context.Context, id int64) (D, error) {
	var zero D
	entity, ok, err := f.repo.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, &NotFoundError{ID: id}
	}
	return f.conv.ToDTO(entity)
}

// FindOneDefault returns the record with the well-known default id, used
// when the boundary supplies none.
func (f *Facade[E, D]) FindOneDefault(ctx context.Context) (D, error) {
	return f.FindOne(ctx, DefaultID)
}

// FindAll returns every stored record converted; an empty list is valid.
func (f *Facade[E, D]) FindAll(ctx context.Context) ([]D, error) {
	entities, err := f.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return f.toDTOs(entities)
}

// Remove deletes by id. Idempotent at the store level.
func (f *Facade[E, D]) Remove(ctx context.Context, id int64) error {
	return f.repo.DeleteByID(ctx, id)
}

// Count returns the total number of stored records for the family.
func (f *Facade[E, D]) Count(ctx context.Context) (int64, error) {
	return f.repo.Count(ctx)
}

func (f *Facade[E, D]) toDTOs(entities []E) ([]D, error) {
	out := make([]D, 0, len(entities))
	for _, e := range entities {
		d, err := f.conv.ToDTO(e)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
