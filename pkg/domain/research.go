package domain

import "fmt"

// ResearchState is the lifecycle state of a brand research record. The
// state value doubles as the discriminant selecting the concrete variant a
// stored row maps to.
type ResearchState string

const (
	StateBrandname  ResearchState = "BRANDNAME"
	StateLearning   ResearchState = "LEARNING"
	StateTree       ResearchState = "TREE"
	StatePayment    ResearchState = "PAYMENT"
	StateProcessing ResearchState = "PROCESSING"
	StateReady      ResearchState = "READY"
)

// ResearchCore carries the fields shared by every research variant.
type ResearchCore struct {
	ID     int64
	Name   string
	State  ResearchState
	Jitter Jitter
}

// Research is the variant-typed research family. Only the brand and
// learning variants exist; a record's state must match its variant.
type Research interface {
	Core() *ResearchCore
	researchVariant()
}

// BrandResearch is a research record in the brand-name stage.
type BrandResearch struct {
	ResearchCore
}

// LearningResearch is a research record in the learning stage.
type LearningResearch struct {
	ResearchCore
}

func (r *BrandResearch) Core() *ResearchCore    { return &r.ResearchCore }
func (r *LearningResearch) Core() *ResearchCore { return &r.ResearchCore }

func (*BrandResearch) researchVariant()    {}
func (*LearningResearch) researchVariant() {}

// NewBrandResearch builds a brand research record owned by jitter.
func NewBrandResearch(name string, jitter Jitter) *BrandResearch {
	return &BrandResearch{ResearchCore{Name: name, State: StateBrandname, Jitter: jitter}}
}

// NewLearningResearch builds a learning research record owned by jitter.
func NewLearningResearch(name string, jitter Jitter) *LearningResearch {
	return &LearningResearch{ResearchCore{Name: name, State: StateLearning, Jitter: jitter}}
}

// UnsupportedStateError reports a research state with no concrete variant.
// It signals corrupted stored data or an unfinished feature, not caller
// error, and must never be coerced to a default variant.
type UnsupportedStateError struct {
	State ResearchState
}

func (e *UnsupportedStateError) Error() string {
	return fmt.Sprintf("research state %q has no concrete variant", e.State)
}

// ResolveResearch maps a lifecycle state to the constructor for its
// concrete entity variant. Defined only for BRANDNAME and LEARNING; every
// other state is an unsupported-state fault.
func ResolveResearch(state ResearchState) (func(ResearchCore) Research, error) {
	switch state {
	case StateBrandname:
		return func(c ResearchCore) Research { return &BrandResearch{c} }, nil
	case StateLearning:
		return func(c ResearchCore) Research { return &LearningResearch{c} }, nil
	default:
		return nil, &UnsupportedStateError{State: state}
	}
}
