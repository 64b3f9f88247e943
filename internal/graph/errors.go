package graph

import (
	"errors"
	"fmt"

	"mes_planner/internal/model"
)

var (
	// ErrEmptyGraph is returned by Build when no branch was connected.
	ErrEmptyGraph = errors.New("graph has no branches")
	// ErrHubSealed is returned when capacities change after the hub was sealed.
	ErrHubSealed = errors.New("hub is sealed")
)

// UnknownPortError reports a connect call naming a node or port that does
// not exist on the required side.
type UnknownPortError struct {
	Node string
	Port string
	Side string // "source" or "destination"
}

func (e *UnknownPortError) Error() string {
	return fmt.Sprintf("unknown %s port %s.%s", e.Side, e.Node, e.Port)
}

// DuplicateBranchError reports a second connection between the same ports.
type DuplicateBranchError struct {
	Branch string
}

func (e *DuplicateBranchError) Error() string {
	return fmt.Sprintf("duplicate branch %s", e.Branch)
}

// DuplicateNodeError reports a node name used twice.
type DuplicateNodeError struct {
	Name string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node %s", e.Name)
}

// CarrierMismatchError reports a branch between ports of different carriers.
type CarrierMismatchError struct {
	Branch string
	Src    model.Carrier
	Dst    model.Carrier
}

func (e *CarrierMismatchError) Error() string {
	return fmt.Sprintf("branch %s connects %s to %s", e.Branch, e.Src, e.Dst)
}
