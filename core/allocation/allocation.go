// Package allocation keeps the contribution shares of a team summing to exactly 100.
//
// A State is a value: every operation returns a new State and never mutates its input.
// Shares are re-split evenly: when one member's share changes, the remainder is divided
// evenly among the other members, the first ones in roster order getting the leftover units.
package allocation

import (
	"fmt"

	"github.com/pkg/errors"
)

// Total is the sum every submittable State adds up to.
const Total = 100

var (
	ErrEmptyRoster     = errors.New("roster has no members")
	ErrDuplicateMember = errors.New("roster has duplicate members")
	ErrUnknownMember   = errors.New("member is not in the roster")
	ErrShareOutOfRange = errors.New("share must be between 0 and 100")
)

// Share is one member's percentage of the team's contribution.
type Share struct {
	Member string `json:"member"`
	Value  int    `json:"value"`
}

// State holds the shares of an ordered roster.
type State struct {
	Shares []Share `json:"shares"`
}

// Initialize splits Total evenly across members.
// The first Total%N members, in the given order, get one extra unit.
func Initialize(members []string) (State, error) {
	if len(members) == 0 {
		return State{}, ErrEmptyRoster
	}
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			return State{}, errors.Wrapf(ErrDuplicateMember, "%q", m)
		}
		seen[m] = struct{}{}
	}

	values := split(Total, len(members))
	shares := make([]Share, len(members))
	for i, m := range members {
		shares[i] = Share{Member: m, Value: values[i]}
	}
	return State{Shares: shares}, nil
}

// SetShare sets member's share to value and re-splits the remainder evenly across the other members.
// The previous shares of the other members are discarded.
// A lone member always keeps Total.
func SetShare(state State, member string, value int) (State, error) {
	idx := state.index(member)
	if idx < 0 {
		return State{}, errors.Wrapf(ErrUnknownMember, "%q", member)
	}
	if value < 0 || value > Total {
		return State{}, errors.Wrapf(ErrShareOutOfRange, "got %d", value)
	}

	n := len(state.Shares)
	shares := make([]Share, n)
	copy(shares, state.Shares)
	if n == 1 {
		shares[0].Value = Total
		return State{Shares: shares}, nil
	}

	shares[idx].Value = value
	values := split(Total-value, n-1)
	j := 0
	for i := range shares {
		if i == idx {
			continue
		}
		shares[i].Value = values[j]
		j++
	}
	return State{Shares: shares}, nil
}

// IsSubmittable reports whether every roster member has a share of at least 0 in state
// and the shares of the roster sum to exactly Total.
func IsSubmittable(state State, roster []string) bool {
	if len(roster) == 0 {
		return false
	}
	values := state.Map()
	sum := 0
	for _, m := range roster {
		v, ok := values[m]
		if !ok || v < 0 {
			return false
		}
		sum += v
	}
	return sum == Total
}

// Seed returns the starting State of a roster: the previous rates when at least one roster member
// has one (missing members get 0), an even split otherwise.
func Seed(roster []string, previous map[string]int) (State, error) {
	var found bool
	for _, m := range roster {
		if _, ok := previous[m]; ok {
			found = true
			break
		}
	}
	if !found {
		return Initialize(roster)
	}

	state, err := Initialize(roster)
	if err != nil {
		return State{}, err
	}
	for i := range state.Shares {
		state.Shares[i].Value = previous[state.Shares[i].Member]
	}
	return state, nil
}

// Map returns the shares keyed by member.
func (s State) Map() map[string]int {
	m := make(map[string]int, len(s.Shares))
	for _, sh := range s.Shares {
		m[sh.Member] = sh.Value
	}
	return m
}

// Members returns the roster of the State, in order.
func (s State) Members() []string {
	members := make([]string, len(s.Shares))
	for i, sh := range s.Shares {
		members[i] = sh.Member
	}
	return members
}

// Sum returns the sum of all shares.
func (s State) Sum() int {
	sum := 0
	for _, sh := range s.Shares {
		sum += sh.Value
	}
	return sum
}

func (s State) String() string {
	return fmt.Sprintf("%v", s.Shares)
}

func (s State) index(member string) int {
	for i, sh := range s.Shares {
		if sh.Member == member {
			return i
		}
	}
	return -1
}

// split divides total into n parts; the first total%n parts get one extra unit.
func split(total, n int) []int {
	base := total / n
	r := total - base*n
	values := make([]int, n)
	for i := range values {
		values[i] = base
		if i < r {
			values[i]++
		}
	}
	return values
}
