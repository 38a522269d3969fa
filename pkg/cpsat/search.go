package cpsat

import (
	"context"
	"errors"
)

const unassigned int8 = -1

type occurrence struct {
	constraint int32
	negated    bool
	body       bool
}

// search is the state of one depth-first enumeration. Each constraint keeps incremental
// counters of its true and false body literals; the trail records assigned variables so
// that backtracking can restore both values and counters.
type search struct {
	ctx      context.Context
	model    *Builder
	cb       SolutionCallback
	interval int64

	value    []int8
	trail    []int32
	occ      [][]occurrence
	numTrue  []int32
	numFalse []int32
	queue    []int32
	queued   []bool

	solutions int
	branches  int64
	conflicts int64
	stop      StopReason
}

func newSearch(ctx context.Context, model *Builder, cb SolutionCallback, interval int) *search {
	n := model.NumVariables()
	m := model.NumConstraints()
	s := &search{
		ctx:      ctx,
		model:    model,
		cb:       cb,
		interval: int64(interval),
		value:    make([]int8, n),
		trail:    make([]int32, 0, n),
		occ:      make([][]occurrence, n),
		numTrue:  make([]int32, m),
		numFalse: make([]int32, m),
		queued:   make([]bool, m),
	}
	for i := range s.value {
		s.value[i] = unassigned
	}
	for ci, ct := range model.constraints {
		for _, l := range ct.lits {
			s.occ[l.index] = append(s.occ[l.index], occurrence{constraint: int32(ci), negated: l.negated, body: true})
		}
		for _, l := range ct.enforce {
			s.occ[l.index] = append(s.occ[l.index], occurrence{constraint: int32(ci), negated: l.negated})
		}
	}
	return s
}

func (s *search) run() {
	for ci := range s.model.constraints {
		s.enqueue(int32(ci))
	}
	if !s.propagate() {
		return
	}
	s.dfs(0)
}

// dfs returns false when the search must stop.
func (s *search) dfs(from int) bool {
	next := from
	for next < len(s.value) && s.value[next] != unassigned {
		next++
	}
	if next == len(s.value) {
		return s.emit()
	}
	for _, val := range [2]int8{1, 0} {
		if !s.tick() {
			return false
		}
		mark := len(s.trail)
		if s.assign(int32(next), val) && s.propagate() {
			if !s.dfs(next + 1) {
				s.undo(mark)
				return false
			}
		} else {
			s.conflicts++
		}
		s.undo(mark)
	}
	return true
}

func (s *search) tick() bool {
	s.branches++
	if s.branches%s.interval != 0 {
		return true
	}
	return s.checkContext()
}

func (s *search) checkContext() bool {
	err := s.ctx.Err()
	if err == nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.stop = StopTimeLimit
	} else {
		s.stop = StopCancelled
	}
	return false
}

func (s *search) emit() bool {
	s.solutions++
	if s.cb != nil && !s.cb(assignmentView{s: s}) {
		s.stop = StopCallback
		return false
	}
	return s.checkContext()
}

func (s *search) litValue(l BoolVar) int8 {
	v := s.value[l.index]
	if v == unassigned {
		return unassigned
	}
	if l.negated {
		return 1 - v
	}
	return v
}

func (s *search) assign(v int32, val int8) bool {
	if cur := s.value[v]; cur != unassigned {
		return cur == val
	}
	s.value[v] = val
	s.trail = append(s.trail, v)
	for _, o := range s.occ[v] {
		if o.body {
			if (val == 1) != o.negated {
				s.numTrue[o.constraint]++
			} else {
				s.numFalse[o.constraint]++
			}
		}
		s.enqueue(o.constraint)
	}
	return true
}

func (s *search) assignLit(l BoolVar, truth bool) bool {
	val := int8(0)
	if truth != l.negated {
		val = 1
	}
	return s.assign(l.index, val)
}

func (s *search) undo(mark int) {
	for len(s.trail) > mark {
		v := s.trail[len(s.trail)-1]
		s.trail = s.trail[:len(s.trail)-1]
		val := s.value[v]
		for _, o := range s.occ[v] {
			if !o.body {
				continue
			}
			if (val == 1) != o.negated {
				s.numTrue[o.constraint]--
			} else {
				s.numFalse[o.constraint]--
			}
		}
		s.value[v] = unassigned
	}
}

func (s *search) enqueue(c int32) {
	if s.queued[c] {
		return
	}
	s.queued[c] = true
	s.queue = append(s.queue, c)
}

func (s *search) propagate() bool {
	for len(s.queue) > 0 {
		c := s.queue[len(s.queue)-1]
		s.queue = s.queue[:len(s.queue)-1]
		s.queued[c] = false
		if !s.propagateConstraint(c) {
			for _, q := range s.queue {
				s.queued[q] = false
			}
			s.queue = s.queue[:0]
			return false
		}
	}
	return true
}

func (s *search) propagateConstraint(c int32) bool {
	ct := &s.model.constraints[c]

	var pending BoolVar
	open := 0
	for _, e := range ct.enforce {
		switch s.litValue(e) {
		case 0:
			return true
		case unassigned:
			open++
			pending = e
		}
	}

	t := int(s.numTrue[c])
	u := len(ct.lits) - t - int(s.numFalse[c])
	violated := t > ct.ub || t+u < ct.lb

	if open > 0 {
		if violated && open == 1 {
			return s.assignLit(pending, false)
		}
		return true
	}
	if violated {
		return false
	}
	if u == 0 {
		return true
	}
	switch {
	case t == ct.ub:
		for _, l := range ct.lits {
			if s.litValue(l) == unassigned && !s.assignLit(l, false) {
				return false
			}
		}
	case t+u == ct.lb:
		for _, l := range ct.lits {
			if s.litValue(l) == unassigned && !s.assignLit(l, true) {
				return false
			}
		}
	}
	return true
}

type assignmentView struct {
	s *search
}

func (a assignmentView) Value(v BoolVar) bool {
	if v.index < 0 || int(v.index) >= len(a.s.value) {
		return false
	}
	return a.s.litValue(v) == 1
}

func (a assignmentView) Values() []bool {
	out := make([]bool, len(a.s.value))
	for i, v := range a.s.value {
		out[i] = v == 1
	}
	return out
}
