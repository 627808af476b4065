package facade

import (
	"context"
	"errors"
	"testing"
	"time"

	"jittr/pkg/domain"
	"jittr/pkg/dto"
	"jittr/pkg/permission"
	"jittr/pkg/store"
	"jittr/pkg/validate"
)

type fixture struct {
	mem      *store.MemoryStore
	jitters  *JitterFacade
	jittles  *JittleFacade
	research *ResearchFacade
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	check := validate.New()
	return &fixture{
		mem:      mem,
		jitters:  NewJitterFacade(mem.Jitters, check),
		jittles:  NewJittleFacade(mem.Jittles, mem.Jitters, check),
		research: NewResearchFacade(mem.Research, mem.Jitters, check),
	}
}

func (f *fixture) seedJitter(t *testing.T, username string, role domain.Role) domain.Jitter {
	t.Helper()
	j, err := f.mem.Jitters.Save(context.Background(), domain.Jitter{
		Username: username,
		Password: "stored-hash",
		FullName: "Seeded " + username,
		Email:    username + "@example.com",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("seed jitter %s: %v", username, err)
	}
	return j
}

func validJitterDTO(id int64, username string) dto.JitterDTO {
	return dto.JitterDTO{
		ID:       id,
		Username: username,
		Password: "hashed-credential",
		Role:     domain.RoleJitter,
		FullName: "Alice Cooper",
		Email:    "alice@example.com",
	}
}

func validJittleDTO(id int64, owner dto.JitterDTO) dto.JittleDTO {
	return dto.JittleDTO{
		ID:         id,
		Jitter:     &owner,
		Message:    "the quick brown fox",
		PostedTime: time.Date(2017, 4, 1, 12, 0, 0, 0, time.UTC),
		Author:     "someone",
		Judgment:   domain.JudgmentNone,
		TQueue:     domain.QueueTrainRaw,
		Country:    "usa",
	}
}

func TestCreateUnresolvableCallerShortCircuitsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The representation is also invalid; identity must win the race.
	bad := validJitterDTO(100, "alice")
	bad.FullName = "x"
	_, err := f.jitters.Create(ctx, "alice", bad)
	var idErr *IdentityNotFoundError
	if !errors.As(err, &idErr) {
		t.Fatalf("expected IdentityNotFoundError, got %v", err)
	}
	if idErr.Username != "alice" {
		t.Fatalf("unexpected username in error: %q", idErr.Username)
	}
}

func TestMergeThenCreateScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedJitter(t, "root", domain.RoleAdmin)

	rep := validJitterDTO(100, "alice")
	if _, err := f.jitters.Create(ctx, "alice", rep); err == nil {
		t.Fatalf("expected identity failure for unknown caller")
	}

	if _, err := f.jitters.Merge(ctx, "root", rep); err != nil {
		t.Fatalf("merge: %v", err)
	}
	created, err := f.jitters.Create(ctx, "alice", rep)
	if err != nil {
		t.Fatalf("create after merge: %v", err)
	}
	got, err := f.jitters.FindOne(ctx, created.ID)
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if got != created {
		t.Fatalf("round trip mismatch: %+v != %+v", got, created)
	}
}

func TestCreateCollectsAllFieldErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedJitter(t, "root", domain.RoleAdmin)

	bad := validJitterDTO(100, "not a handle!")
	bad.FullName = "x"
	_, err := f.jitters.Create(ctx, "root", bad)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(vErr.Fields) < 2 {
		t.Fatalf("expected all field errors collected, got %v", vErr.Fields)
	}
	if n, _ := f.jitters.Count(ctx); n != 1 {
		t.Fatalf("invalid representation must not persist, count=%d", n)
	}
}

func TestCreateJitterBatchRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedJitter(t, "root", domain.RoleAdmin)

	a := validJitterDTO(10, "alice")
	b := validJitterDTO(11, "bob")
	b.FullName = "Bobby Tables"
	if err := f.jitters.CreateBatch(ctx, "root", []*dto.JitterDTO{&a, &b}); err != nil {
		t.Fatalf("create batch: %v", err)
	}
	got, err := f.jitters.FindOne(ctx, 11)
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if got.Username != "bob" || got.FullName != "Bobby Tables" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if n, _ := f.jitters.Count(ctx); n != 3 {
		t.Fatalf("count=%d, want 3", n)
	}
}

func TestCreateBatchNilElementCommitsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedJitter(t, "alice", domain.RoleJitter)
	owner := dto.FromJitter(alice)

	first := validJittleDTO(1001, owner)
	third := validJittleDTO(1002, owner)
	err := f.jittles.CreateBatch(ctx, "alice", []*dto.JittleDTO{&first, nil, &third})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for nil element, got %v", err)
	}
	if n, _ := f.jittles.Count(ctx); n != 0 {
		t.Fatalf("expected no partial commit, count=%d", n)
	}
}

func TestCreateBatchDuplicateIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedJitter(t, "alice", domain.RoleJitter)
	owner := dto.FromJitter(alice)

	a := validJittleDTO(1001, owner)
	b := validJittleDTO(1001, owner)
	err := f.jittles.CreateBatch(ctx, "alice", []*dto.JittleDTO{&a, &b})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if n, _ := f.jittles.Count(ctx); n != 0 {
		t.Fatalf("expected no partial commit, count=%d", n)
	}
}

func TestCreateBatchRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedJitter(t, "alice", domain.RoleJitter)
	owner := dto.FromJitter(alice)

	a := validJittleDTO(1001, owner)
	b := validJittleDTO(1002, owner)
	if err := f.jittles.CreateBatch(ctx, "alice", []*dto.JittleDTO{&a, &b}); err != nil {
		t.Fatalf("create batch: %v", err)
	}
	got, err := f.jittles.FindOne(ctx, 1001)
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if got.Message != a.Message || got.TQueue != a.TQueue || got.Jitter.Username != "alice" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Latitude != nil || got.Longitude != nil {
		t.Fatalf("absent coordinates must stay absent, got %+v", got)
	}
	if n, _ := f.jittles.Count(ctx); n != 2 {
		t.Fatalf("count=%d, want 2", n)
	}
}

func TestMergeIsIdempotentAndPreservesSensitiveFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedJitter(t, "root", domain.RoleAdmin)
	alice := f.seedJitter(t, "alice", domain.RoleJitter)

	payload := validJitterDTO(999, "alice")
	payload.Role = domain.RoleAdmin // must not escalate
	payload.Password = "attacker-supplied-secret"
	payload.FullName = "Alice Updated"
	payload.Email = "new@example.com"

	first, err := f.jitters.Merge(ctx, "root", payload)
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	second, err := f.jitters.Merge(ctx, "root", payload)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if first != second {
		t.Fatalf("merge not idempotent: %+v != %+v", first, second)
	}
	if second.ID != alice.ID {
		t.Fatalf("merge must key on username, got id %d", second.ID)
	}
	if second.FullName != "Alice Updated" || second.Email != "new@example.com" {
		t.Fatalf("merge must update name and email: %+v", second)
	}
	if second.Password != alice.Password {
		t.Fatalf("merge must never overwrite the credential")
	}
	if second.Role != domain.RoleJitter {
		t.Fatalf("merge must never escalate the role, got %s", second.Role)
	}
}

func TestMergeCreatesMissingJitterWithDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedJitter(t, "root", domain.RoleAdmin)

	payload := validJitterDTO(777, "newcomer")
	payload.Role = domain.RoleAdmin
	merged, err := f.jitters.Merge(ctx, "root", payload)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Role != domain.RoleJitter {
		t.Fatalf("created jitter must get the default role, got %s", merged.Role)
	}
	if merged.Password != store.DefaultMergePassword {
		t.Fatalf("created jitter must get the placeholder credential")
	}
}

func TestPullDeliversEachJittleOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedJitter(t, "alice", domain.RoleJitter)
	f.seedJitter(t, "bob", domain.RoleJitter)
	owner := dto.FromJitter(alice)

	a := validJittleDTO(1, owner)
	b := validJittleDTO(2, owner)
	b.TQueue = domain.QueueViewRaw
	if err := f.jittles.CreateBatch(ctx, "alice", []*dto.JittleDTO{&a, &b}); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	queue := domain.QueueTrainRaw
	pulled, err := f.jittles.Pull(ctx, "alice", &queue)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(pulled) != 1 || pulled[0].ID != 1 {
		t.Fatalf("expected only the TRAIN_RAW jittle, got %+v", pulled)
	}

	again, err := f.jittles.Pull(ctx, "alice", &queue)
	if err != nil {
		t.Fatalf("second pull: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second pull must be empty, got %+v", again)
	}

	// The other queue is untouched; an unscoped pull drains it.
	rest, err := f.jittles.Pull(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("unscoped pull: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != 2 {
		t.Fatalf("expected the VIEW_RAW jittle, got %+v", rest)
	}

	// Other owners never observe alice's pulls.
	if pulledBob, _ := f.jittles.Pull(ctx, "bob", nil); len(pulledBob) != 0 {
		t.Fatalf("bob must not receive alice's jittles")
	}
}

func TestPullUnknownOwnerFails(t *testing.T) {
	f := newFixture(t)
	if _, err := f.jittles.Pull(context.Background(), "ghost", nil); err == nil {
		t.Fatalf("expected identity failure")
	}
}

func TestResearchVariantSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedJitter(t, "alice", domain.RoleJitter)
	owner := dto.FromJitter(alice)

	brand := &dto.BrandResearchDTO{ResearchCoreDTO: dto.ResearchCoreDTO{
		Name:   "acme-brand",
		State:  domain.StateBrandname,
		Jitter: &owner,
	}}
	created, err := f.research.Create(ctx, "alice", dto.ResearchDTO(brand))
	if err != nil {
		t.Fatalf("create research: %v", err)
	}
	if _, ok := created.(*dto.BrandResearchDTO); !ok {
		t.Fatalf("BRANDNAME state must map to the brand variant, got %T", created)
	}

	got, err := f.research.FindOne(ctx, created.Core().ID)
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if _, ok := got.(*dto.BrandResearchDTO); !ok {
		t.Fatalf("stored BRANDNAME row must read back as brand variant, got %T", got)
	}
}

func TestResearchUnsupportedStateIsFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedJitter(t, "alice", domain.RoleJitter)

	id := f.mem.Research.SeedState(domain.ResearchCore{
		Name:   "paid-research",
		State:  domain.StatePayment,
		Jitter: alice,
	})
	_, err := f.research.FindOne(ctx, id)
	var stateErr *domain.UnsupportedStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected UnsupportedStateError, got %v", err)
	}
	if stateErr.State != domain.StatePayment {
		t.Fatalf("unexpected state in fault: %s", stateErr.State)
	}
}

func TestResearchFindByUsernameIncludesSharedRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedJitter(t, "alice", domain.RoleJitter)
	guest := f.seedJitter(t, DefaultUsername, domain.RoleJitter)

	if _, err := f.mem.Research.Save(ctx, domain.NewBrandResearch("alice-brand", alice)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := f.mem.Research.Save(ctx, domain.NewLearningResearch("shared-learning", guest)); err != nil {
		t.Fatalf("save: %v", err)
	}

	found, err := f.research.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected own plus shared records, got %d", len(found))
	}

	shared, err := f.research.FindByUsernameDefault(ctx)
	if err != nil {
		t.Fatalf("find default: %v", err)
	}
	if len(shared) != 1 || shared[0].Core().Name != "shared-learning" {
		t.Fatalf("expected only the shared record, got %+v", shared)
	}
}

func TestRemoveOwnedPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedJitter(t, "alice", domain.RoleJitter)
	mallory := f.seedJitter(t, "mallory", domain.RoleJitter)
	root := f.seedJitter(t, "root", domain.RoleAdmin)
	owner := dto.FromJitter(alice)

	j := validJittleDTO(5, owner)
	if err := f.jittles.CreateBatch(ctx, "alice", []*dto.JittleDTO{&j}); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := f.jittles.RemoveOwned(ctx, permission.IdentityOf(mallory), 5)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign member must be denied, got %v", err)
	}
	if err := f.jittles.RemoveOwned(ctx, permission.IdentityOf(root), 5); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	var nfErr *NotFoundError
	if err := f.jittles.RemoveOwned(ctx, permission.IdentityOf(root), 5); !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
}

func TestFindOneDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.seedJitter(t, DefaultUsername, domain.RoleJitter)

	saved, err := f.mem.Research.Save(ctx, domain.NewBrandResearch("default-brand", guest))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Core().ID != DefaultID {
		t.Fatalf("fixture expects the first id to be the default id, got %d", saved.Core().ID)
	}
	got, err := f.research.FindOneDefault(ctx)
	if err != nil {
		t.Fatalf("find default: %v", err)
	}
	if got.Core().Name != "default-brand" {
		t.Fatalf("unexpected record: %+v", got)
	}
}
