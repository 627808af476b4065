package validate

import (
	"testing"

	"jittr/pkg/domain"
	"jittr/pkg/dto"
)

func validJitter() dto.JitterDTO {
	return dto.JitterDTO{
		ID:       1,
		Username: "alice",
		Password: "secret-hash",
		Role:     domain.RoleJitter,
		FullName: "Alice Cooper",
		Email:    "alice@example.com",
	}
}

func TestCheckValidJitterPasses(t *testing.T) {
	c := New()
	if errs := c.Check(validJitter()); errs != nil {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

func TestCheckCollectsAllViolations(t *testing.T) {
	c := New()
	bad := validJitter()
	bad.Username = "not a handle!"
	bad.FullName = "ab"
	bad.Email = "nope"
	errs := c.Check(bad)
	if len(errs) != 3 {
		t.Fatalf("expected 3 violations, got %d: %v", len(errs), errs)
	}
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"username", "fullName", "email"} {
		if !fields[want] {
			t.Fatalf("missing violation for field %q in %v", want, errs)
		}
	}
}

func TestCheckNestedJitterIsNotCascaded(t *testing.T) {
	c := New()
	// An invalid nested owner must not fail the jittle; only presence of
	// the owner reference is enforced.
	owner := dto.JitterDTO{Username: "bob"}
	j := dto.JittleDTO{
		ID:       7,
		Jitter:   &owner,
		Message:  "hello",
		Judgment: domain.JudgmentNone,
		TQueue:   domain.QueueTrainRaw,
	}
	if errs := c.Check(j); errs != nil {
		t.Fatalf("expected no violations, got %v", errs)
	}
	j.Jitter = nil
	errs := c.Check(j)
	if len(errs) != 1 || errs[0].Field != "jitter" {
		t.Fatalf("expected single jitter violation, got %v", errs)
	}
}

func TestCheckResearchVariant(t *testing.T) {
	c := New()
	owner := validJitter()
	r := &dto.BrandResearchDTO{ResearchCoreDTO: dto.ResearchCoreDTO{
		Name:   "acme-brand",
		State:  domain.StateBrandname,
		Jitter: &owner,
	}}
	if errs := c.Check(r); errs != nil {
		t.Fatalf("expected no violations, got %v", errs)
	}
	r.Name = "ab"
	errs := c.Check(r)
	if len(errs) != 1 || errs[0].Field != "name" {
		t.Fatalf("expected single name violation, got %v", errs)
	}

	// Fields reached through the embedded core must report their json
	// names, never the intermediate Go type.
	r.Jitter = nil
	errs = c.Check(r)
	if len(errs) != 2 {
		t.Fatalf("expected name and jitter violations, got %v", errs)
	}
	for _, e := range errs {
		if e.Field != "name" && e.Field != "jitter" {
			t.Fatalf("unexpected field path %q in %v", e.Field, errs)
		}
	}
}
