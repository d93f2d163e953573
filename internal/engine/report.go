package engine

import (
	"errors"
	"time"

	"crate-schema/internal/action"
	"crate-schema/internal/schema"
)

// Outcome is what happened to one entity's table during a run.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeRecreated Outcome = "recreated"
	OutcomeAltered   Outcome = "altered"
	OutcomeInSync    Outcome = "in-sync"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Result reports one entity.
type Result struct {
	Entity  string
	Table   string
	Outcome Outcome
	Actions []action.Action // mutating actions that succeeded
	Err     error
	Elapsed time.Duration
}

// Report is the outcome of Manager.Start, one Result per registered entity
// in registration order.
type Report struct {
	RunID   string
	Option  schema.SchemaOption
	Results []Result
	Elapsed time.Duration
}

func newReport(runID string, option schema.SchemaOption, entities []string, tables []string) *Report {
	r := &Report{RunID: runID, Option: option, Results: make([]Result, len(entities))}
	for i := range entities {
		r.Results[i] = Result{Entity: entities[i], Table: tables[i], Outcome: OutcomeSkipped}
	}
	return r
}

// Count returns the number of entities with the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Actions returns the number of mutating actions executed.
func (r *Report) Actions() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Actions)
	}
	return n
}

// Err joins the errors of all failed entities.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}
