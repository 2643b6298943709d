package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// OperatorSet is the read-only allow-list of operator user ids.
// The first id given at construction is the primary operator.
type OperatorSet struct {
	ids     []int64
	members map[int64]struct{}
}

// NewOperatorSet builds a set from ids, dropping duplicates but keeping order.
func NewOperatorSet(ids ...int64) OperatorSet {
	s := OperatorSet{members: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		if _, dup := s.members[id]; dup {
			continue
		}
		s.members[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	return s
}

// ParseOperatorSet parses a comma or whitespace separated list of user ids.
func ParseOperatorSet(raw string) (OperatorSet, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return OperatorSet{}, fmt.Errorf("domain: invalid operator id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return NewOperatorSet(ids...), nil
}

func (s OperatorSet) Contains(id int64) bool {
	_, ok := s.members[id]
	return ok
}

// IDs returns the operator ids in configuration order.
func (s OperatorSet) IDs() []int64 {
	out := make([]int64, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s OperatorSet) Len() int {
	return len(s.ids)
}

// Primary returns the first configured operator.
func (s OperatorSet) Primary() (int64, bool) {
	if len(s.ids) == 0 {
		return 0, false
	}
	return s.ids[0], true
}
