package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/reveal"
)

// RevealRule is the submission feedback reveal rule of one exercise. Trigger
// holds the textual trigger name.
type RevealRule struct {
	ExerciseID        int64
	Trigger           string
	DelayMinutes      int
	Time              *time.Time
	CurrentlyRevealed bool
}

func (r RevealRule) ToRule() (reveal.Rule, error) {
	t, err := reveal.ParseTrigger(r.Trigger)
	if err != nil {
		return reveal.Rule{}, fmt.Errorf("%w: exercise %d: %w", common.ErrInvalidArgument, r.ExerciseID, err)
	}
	return reveal.Rule{
		Trigger:           t,
		DelayMinutes:      r.DelayMinutes,
		Time:              r.Time,
		CurrentlyRevealed: r.CurrentlyRevealed,
	}, nil
}

func RevealRuleFrom(exerciseID int64, rule reveal.Rule) RevealRule {
	return RevealRule{
		ExerciseID:        exerciseID,
		Trigger:           rule.Trigger.String(),
		DelayMinutes:      rule.DelayMinutes,
		Time:              rule.Time,
		CurrentlyRevealed: rule.CurrentlyRevealed,
	}
}

// ModelSolutionRule decides when the model answer chapter of a module is
// shown to students.
type ModelSolutionRule struct {
	ModuleID          int64
	Trigger           string
	DelayMinutes      int
	Time              *time.Time
	CurrentlyRevealed bool
}

func (r ModelSolutionRule) ToRule() (reveal.Rule, error) {
	t, err := reveal.ParseTrigger(r.Trigger)
	if err != nil {
		return reveal.Rule{}, fmt.Errorf("%w: module %d: %w", common.ErrInvalidArgument, r.ModuleID, err)
	}
	return reveal.Rule{
		Trigger:           t,
		DelayMinutes:      r.DelayMinutes,
		Time:              r.Time,
		CurrentlyRevealed: r.CurrentlyRevealed,
	}, nil
}

func ModelSolutionRuleFrom(moduleID int64, rule reveal.Rule) ModelSolutionRule {
	return ModelSolutionRule{
		ModuleID:          moduleID,
		Trigger:           rule.Trigger.String(),
		DelayMinutes:      rule.DelayMinutes,
		Time:              rule.Time,
		CurrentlyRevealed: rule.CurrentlyRevealed,
	}
}
