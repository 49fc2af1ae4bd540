package runner

import (
	"fmt"

	v1 "github.com/nestpack/nestpack/apis/v1"
)

// ResolvedStep holds a kind identifier and the spec for that kind.
type ResolvedStep struct {
	Kind string
	Spec any
}

// ResolveStepSpec extracts the kind and spec from a v1.Step.
// Returns an error if no or more than one step type is specified.
func ResolveStepSpec(s v1.Step) (ResolvedStep, error) {
	var resolved []ResolvedStep

	if s.Write != nil {
		resolved = append(resolved, ResolvedStep{Kind: "write", Spec: s.Write})
	}
	if s.Copy != nil {
		resolved = append(resolved, ResolvedStep{Kind: "copy", Spec: s.Copy})
	}
	if s.Archive != nil {
		resolved = append(resolved, ResolvedStep{Kind: "archive", Spec: s.Archive})
	}
	if s.EmptyRoot != nil {
		resolved = append(resolved, ResolvedStep{Kind: "empty_root", Spec: s.EmptyRoot})
	}

	switch len(resolved) {
	case 1:
		return resolved[0], nil
	case 0:
		return ResolvedStep{}, fmt.Errorf("step %q has no type specified", s.ID)
	default:
		return ResolvedStep{}, fmt.Errorf("step %q has more than one type specified", s.ID)
	}
}
