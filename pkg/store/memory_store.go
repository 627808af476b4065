package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"jittr/pkg/domain"
)

// MemoryStore keeps all three families in-process. It backs tests and the
// database-less development mode. One mutex guards every family so that
// merge and pull stay atomic, matching the transactional store contract.
type MemoryStore struct {
	mu           sync.Mutex
	nextJitter   int64
	nextJittle   int64
	nextResearch int64
	jitters      map[int64]domain.Jitter
	jittles      map[int64]domain.Jittle
	research     map[int64]domain.ResearchCore

	Jitters  *MemoryJitterRepository
	Jittles  *MemoryJittleRepository
	Research *MemoryResearchRepository
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		nextJitter:   1,
		nextJittle:   1,
		nextResearch: 1,
		jitters:      make(map[int64]domain.Jitter),
		jittles:      make(map[int64]domain.Jittle),
		research:     make(map[int64]domain.ResearchCore),
	}
	s.Jitters = &MemoryJitterRepository{s: s}
	s.Jittles = &MemoryJittleRepository{s: s}
	s.Research = &MemoryResearchRepository{s: s}
	return s
}

func assign(next *int64) int64 {
	id := *next
	*next++
	return id
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MemoryJitterRepository implements JitterRepository in memory.
type MemoryJitterRepository struct {
	s *MemoryStore
}

func (r *MemoryJitterRepository) Save(_ context.Context, j domain.Jitter) (domain.Jitter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.save(j), nil
}

func (r *MemoryJitterRepository) save(j domain.Jitter) domain.Jitter {
	if j.ID == 0 {
		j.ID = assign(&r.s.nextJitter)
	}
	r.s.jitters[j.ID] = j
	return j
}

func (r *MemoryJitterRepository) SaveAll(_ context.Context, js []domain.Jitter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, j := range js {
		r.save(j)
	}
	return nil
}

func (r *MemoryJitterRepository) FindByID(_ context.Context, id int64) (domain.Jitter, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jitters[id]
	return j, ok, nil
}

func (r *MemoryJitterRepository) FindByUsername(_ context.Context, username string) (domain.Jitter, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.findByUsername(username)
	return j, ok, nil
}

func (s *MemoryStore) findByUsername(username string) (domain.Jitter, bool) {
	for _, id := range sortedIDs(s.jitters) {
		if strings.EqualFold(s.jitters[id].Username, username) {
			return s.jitters[id], true
		}
	}
	return domain.Jitter{}, false
}

func (r *MemoryJitterRepository) FindAll(_ context.Context) ([]domain.Jitter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Jitter, 0, len(r.s.jitters))
	for _, id := range sortedIDs(r.s.jitters) {
		out = append(out, r.s.jitters[id])
	}
	return out, nil
}

func (r *MemoryJitterRepository) DeleteByID(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.jitters, id)
	return nil
}

func (r *MemoryJitterRepository) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.jitters)), nil
}

func (r *MemoryJitterRepository) Merge(_ context.Context, j domain.Jitter) (domain.Jitter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if found, ok := r.s.findByUsername(j.Username); ok {
		found.FullName = j.FullName
		found.Email = j.Email
		r.s.jitters[found.ID] = found
		return found, nil
	}
	created := domain.Jitter{
		ID:       assign(&r.s.nextJitter),
		Username: j.Username,
		Password: DefaultMergePassword,
		FullName: j.FullName,
		Email:    j.Email,
		Role:     domain.RoleJitter,
	}
	r.s.jitters[created.ID] = created
	return created, nil
}

// MemoryJittleRepository implements JittleRepository in memory.
type MemoryJittleRepository struct {
	s *MemoryStore
}

func (r *MemoryJittleRepository) Save(_ context.Context, j domain.Jittle) (domain.Jittle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.save(j), nil
}

func (r *MemoryJittleRepository) save(j domain.Jittle) domain.Jittle {
	if j.ID == 0 {
		j.ID = assign(&r.s.nextJittle)
	}
	r.s.jittles[j.ID] = j
	return j
}

func (r *MemoryJittleRepository) SaveAll(_ context.Context, js []domain.Jittle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, j := range js {
		r.save(j)
	}
	return nil
}

func (r *MemoryJittleRepository) FindByID(_ context.Context, id int64) (domain.Jittle, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jittles[id]
	return j, ok, nil
}

func (r *MemoryJittleRepository) FindAll(_ context.Context) ([]domain.Jittle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.collect(func(domain.Jittle) bool { return true }), nil
}

func (r *MemoryJittleRepository) FindByOwner(_ context.Context, username string) ([]domain.Jittle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.collect(func(j domain.Jittle) bool {
		return strings.EqualFold(j.Jitter.Username, username)
	}), nil
}

func (r *MemoryJittleRepository) FindRecent(_ context.Context, limit int) ([]domain.Jittle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.collect(func(domain.Jittle) bool { return true })
	sort.Slice(all, func(i, j int) bool { return all[i].PostedTime.After(all[j].PostedTime) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryJittleRepository) collect(match func(domain.Jittle) bool) []domain.Jittle {
	out := make([]domain.Jittle, 0)
	for _, id := range sortedIDs(r.s.jittles) {
		if match(r.s.jittles[id]) {
			out = append(out, r.s.jittles[id])
		}
	}
	return out
}

func (r *MemoryJittleRepository) DeleteByID(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.jittles, id)
	return nil
}

func (r *MemoryJittleRepository) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.jittles)), nil
}

func (r *MemoryJittleRepository) Pull(_ context.Context, username string, queue *domain.TargetQueue) ([]domain.Jittle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matched := r.collect(func(j domain.Jittle) bool {
		if !strings.EqualFold(j.Jitter.Username, username) {
			return false
		}
		return queue == nil || j.TQueue == *queue
	})
	for _, j := range matched {
		delete(r.s.jittles, j.ID)
	}
	return matched, nil
}

// MemoryResearchRepository implements ResearchRepository in memory. Rows
// are stored as cores; the variant is resolved from the state on the way
// out, exactly like the discriminant column in the relational store.
type MemoryResearchRepository struct {
	s *MemoryStore
}

func (r *MemoryResearchRepository) Save(_ context.Context, research domain.Research) (domain.Research, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.save(research)
}

func (r *MemoryResearchRepository) save(research domain.Research) (domain.Research, error) {
	core := *research.Core()
	if core.ID == 0 {
		core.ID = assign(&r.s.nextResearch)
	}
	r.s.research[core.ID] = core
	build, err := domain.ResolveResearch(core.State)
	if err != nil {
		return nil, err
	}
	return build(core), nil
}

func (r *MemoryResearchRepository) SaveAll(_ context.Context, rs []domain.Research) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, research := range rs {
		if _, err := r.save(research); err != nil {
			return err
		}
	}
	return nil
}

// SeedState inserts a raw research row bypassing variant resolution, so
// tests can plant states that have no concrete variant yet.
func (r *MemoryResearchRepository) SeedState(core domain.ResearchCore) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if core.ID == 0 {
		core.ID = assign(&r.s.nextResearch)
	}
	r.s.research[core.ID] = core
	return core.ID
}

func (r *MemoryResearchRepository) FindByID(_ context.Context, id int64) (domain.Research, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	core, ok := r.s.research[id]
	if !ok {
		return nil, false, nil
	}
	build, err := domain.ResolveResearch(core.State)
	if err != nil {
		return nil, false, err
	}
	return build(core), true, nil
}

func (r *MemoryResearchRepository) FindAll(_ context.Context) ([]domain.Research, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.collect(func(domain.ResearchCore) bool { return true })
}

func (r *MemoryResearchRepository) FindByOwners(_ context.Context, usernames []string) ([]domain.Research, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.collect(func(core domain.ResearchCore) bool {
		for _, u := range usernames {
			if strings.EqualFold(core.Jitter.Username, u) {
				return true
			}
		}
		return false
	})
}

func (r *MemoryResearchRepository) collect(match func(domain.ResearchCore) bool) ([]domain.Research, error) {
	out := make([]domain.Research, 0)
	for _, id := range sortedIDs(r.s.research) {
		core := r.s.research[id]
		if !match(core) {
			continue
		}
		build, err := domain.ResolveResearch(core.State)
		if err != nil {
			return nil, err
		}
		out = append(out, build(core))
	}
	return out, nil
}

func (r *MemoryResearchRepository) DeleteByID(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.research, id)
	return nil
}

func (r *MemoryResearchRepository) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.research)), nil
}
