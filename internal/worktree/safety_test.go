package worktree

import (
	"slices"
	"testing"
)

func cleanStatus() Status {
	return Status{Upstream: "origin/x", OpInProgress: OpNone, CheckedOut: true}
}

func TestCheckRemoval(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		mutate func(*Status)
		force  bool
		want   []Violation
	}{
		{"clean", false, nil, false, nil},
		{"active", true, nil, false, []Violation{ViolationActive}},
		{"active with force", true, nil, true, []Violation{ViolationActive}},
		{"dirty", false, func(s *Status) { s.IsDirty = true }, true, []Violation{ViolationDirty}},
		{"rebase", false, func(s *Status) { s.OpInProgress = OpRebase }, true, []Violation{ViolationOperation}},
		{"unpushed", false, func(s *Status) { s.HasUnpushedCommits = true }, true, []Violation{ViolationUnpushed}},
		{"no upstream", false, func(s *Status) { s.Upstream = "" }, true, []Violation{ViolationUnpushed}},
		{"untracked", false, func(s *Status) { s.HasUntracked = true }, false, []Violation{ViolationUntracked}},
		{"untracked with force", false, func(s *Status) { s.HasUntracked = true }, true, nil},
		{"everything", true, func(s *Status) {
			s.IsDirty = true
			s.OpInProgress = OpMerge
			s.Upstream = ""
			s.HasUntracked = true
		}, false, []Violation{ViolationActive, ViolationDirty, ViolationOperation, ViolationUnpushed, ViolationUntracked}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := cleanStatus()
			if tt.mutate != nil {
				tt.mutate(&st)
			}
			d := CheckRemoval(Record{Name: "001-x", IsActive: tt.active}, st, tt.force)

			if d.Allowed != (len(tt.want) == 0) {
				t.Errorf("Allowed = %v, want %v", d.Allowed, len(tt.want) == 0)
			}
			if !slices.Equal(d.Violations, tt.want) {
				t.Errorf("Violations = %v, want %v", d.Violations, tt.want)
			}
			if len(d.Reasons) != len(d.Violations) {
				t.Errorf("got %d reasons for %d violations", len(d.Reasons), len(d.Violations))
			}
			if err := d.Err("remove", "001-x"); (err == nil) != d.Allowed {
				t.Errorf("Err() = %v, Allowed = %v", err, d.Allowed)
			}
		})
	}
}

// Force only ever lifts the untracked violation.
func TestCheckRemoval_ForceOnlyLiftsUntracked(t *testing.T) {
	ops := []Operation{OpNone, OpMerge, OpRebase, OpCherryPick, OpBisect}
	for mask := 0; mask < 32; mask++ {
		for _, op := range ops {
			st := Status{
				IsDirty:            mask&1 != 0,
				HasUntracked:       mask&2 != 0,
				HasUnpushedCommits: mask&4 != 0,
				OpInProgress:       op,
				CheckedOut:         true,
			}
			if mask&8 != 0 {
				st.Upstream = "origin/x"
			}
			rec := Record{Name: "001-x", IsActive: mask&16 != 0}

			without := CheckRemoval(rec, st, false)
			with := CheckRemoval(rec, st, true)

			onlyUntracked := slices.Equal(without.Violations, []Violation{ViolationUntracked})
			if !without.Allowed && !onlyUntracked && with.Allowed {
				t.Errorf("mask=%05b op=%s: force allowed removal denied for %v", mask, op, without.Violations)
			}
			if onlyUntracked && !with.Allowed {
				t.Errorf("mask=%05b op=%s: force should lift a lone untracked violation", mask, op)
			}
			for _, v := range with.Violations {
				if v.Overridable() {
					t.Errorf("mask=%05b op=%s: overridable violation %s survived force", mask, op, v)
				}
			}
		}
	}
}

func TestCheckBranchDeletion(t *testing.T) {
	if d := CheckBranchDeletion("001-x", "main", true); !d.Allowed {
		t.Errorf("merged branch should be deletable: %+v", d)
	}

	d := CheckBranchDeletion("001-x", "main", false)
	if d.Allowed || !slices.Equal(d.Violations, []Violation{ViolationNotMerged}) {
		t.Errorf("unmerged branch decision = %+v", d)
	}

	d = CheckBranchDeletion("", "main", true)
	if d.Allowed || !slices.Equal(d.Violations, []Violation{ViolationNoBranch}) {
		t.Errorf("detached decision = %+v", d)
	}
}
