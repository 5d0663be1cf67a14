package migration

import (
	"context"
	"fmt"
	"log/slog"

	"hr-request-backend/internal/metrics"
)

type Runner struct {
	schema  Schema
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewRunner(schema Schema, logger *slog.Logger, m *metrics.Metrics) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{schema: schema, logger: logger.With(slog.String("component", "schema")), metrics: m}
}

func checkBatch(steps []Step) error {
	seen := make(map[string]bool, len(steps))
	for _, st := range steps {
		if err := st.validate(); err != nil {
			return err
		}
		if seen[st.ID] {
			return fmt.Errorf("migration: duplicate step id %s", st.ID)
		}
		seen[st.ID] = true
	}
	return nil
}

// Apply runs every step and reports one entry per step in declaration order.
// Steps whose prerequisites are missing are retried after each productive
// pass, so the order of the batch does not matter. A failed step does not
// stop the others. The returned error is only set for a malformed batch or a
// cancelled context.
func (r *Runner) Apply(ctx context.Context, steps []Step) ([]StepReport, error) {
	if err := checkBatch(steps); err != nil {
		return nil, err
	}
	dialect := r.schema.Dialect()
	reports := make(map[string]StepReport, len(steps))
	missing := map[string]Prereq{}

	pending := steps
	for len(pending) > 0 {
		var waiting []Step
		progressed := false
		for _, st := range pending {
			if err := ctx.Err(); err != nil {
				return r.collect(steps, reports), err
			}
			if !st.supports(dialect) {
				reports[st.ID] = StepReport{StepID: st.ID, Outcome: OutcomeSkipped, Reason: "not supported on " + dialect}
				continue
			}
			p, ok, err := r.firstMissing(ctx, st.requires())
			if err != nil {
				reports[st.ID] = StepReport{StepID: st.ID, Outcome: OutcomeFailed, Reason: "introspection: " + err.Error()}
				continue
			}
			if !ok {
				missing[st.ID] = p
				waiting = append(waiting, st)
				continue
			}
			rep := r.run(ctx, st)
			reports[st.ID] = rep
			if rep.Outcome == OutcomeApplied {
				progressed = true
			}
		}
		if !progressed {
			for _, st := range waiting {
				reports[st.ID] = StepReport{StepID: st.ID, Outcome: OutcomeSkipped, Reason: "missing " + missing[st.ID].String()}
			}
			break
		}
		pending = waiting
	}

	out := r.collect(steps, reports)
	for _, rep := range out {
		r.metrics.ObserveSchemaStep(string(rep.Outcome))
		switch rep.Outcome {
		case OutcomeApplied:
			r.logger.InfoContext(ctx, "schema step applied", slog.String("step", rep.StepID))
		case OutcomeFailed:
			r.logger.WarnContext(ctx, "schema step failed", slog.String("step", rep.StepID), slog.String("reason", rep.Reason))
		default:
			r.logger.DebugContext(ctx, "schema step skipped", slog.String("step", rep.StepID), slog.String("reason", rep.Reason))
		}
	}
	return out, nil
}

func (r *Runner) collect(steps []Step, reports map[string]StepReport) []StepReport {
	out := make([]StepReport, 0, len(reports))
	for _, st := range steps {
		if rep, ok := reports[st.ID]; ok {
			out = append(out, rep)
		}
	}
	return out
}

// Plan reports what Apply would do without changing anything. A step whose
// prerequisite is created by another step of the batch is reported as waiting
// for it; Apply picks it up on a later pass.
func (r *Runner) Plan(ctx context.Context, steps []Step) ([]PlanEntry, error) {
	if err := checkBatch(steps); err != nil {
		return nil, err
	}
	dialect := r.schema.Dialect()
	providers := map[Prereq]string{}
	for _, st := range steps {
		if !st.supports(dialect) {
			continue
		}
		for _, p := range st.provides() {
			providers[p] = st.ID
		}
	}

	out := make([]PlanEntry, 0, len(steps))
	for _, st := range steps {
		entry := PlanEntry{StepID: st.ID, Action: st.Action}
		if !st.supports(dialect) {
			entry.Reason = "not supported on " + dialect
			out = append(out, entry)
			continue
		}

		var waits string
		blocked := ""
		for _, p := range st.requires() {
			ok, err := r.holds(ctx, p)
			if err != nil {
				return nil, err
			}
			if ok {
				continue
			}
			if id, provided := providers[p]; provided && id != st.ID {
				waits = id
				continue
			}
			blocked = "missing " + p.String()
			break
		}
		switch {
		case blocked != "":
			entry.Reason = blocked
		case waits != "":
			entry.Reason = "waits for " + waits
		default:
			done, reason, err := r.satisfied(ctx, st)
			if err != nil {
				return nil, err
			}
			entry.WouldApply = !done
			entry.Reason = reason
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *Runner) firstMissing(ctx context.Context, prereqs []Prereq) (Prereq, bool, error) {
	for _, p := range prereqs {
		ok, err := r.holds(ctx, p)
		if err != nil {
			return p, false, err
		}
		if !ok {
			return p, false, nil
		}
	}
	return Prereq{}, true, nil
}

func (r *Runner) holds(ctx context.Context, p Prereq) (bool, error) {
	switch p.Kind {
	case PrereqTable:
		return r.schema.HasTable(ctx, p.Table)
	case PrereqColumn:
		return r.schema.HasColumn(ctx, p.Table, p.Column)
	case PrereqExtension:
		return r.schema.HasExtension(ctx, p.Name)
	case PrereqUniqueKey:
		return r.schema.IsUniqueKey(ctx, p.Table, p.Column)
	}
	return false, fmt.Errorf("unknown prerequisite %q", p.Kind)
}

func (r *Runner) run(ctx context.Context, st Step) StepReport {
	rep := StepReport{StepID: st.ID}
	done, reason, err := r.satisfied(ctx, st)
	if err != nil {
		rep.Outcome, rep.Reason = OutcomeFailed, "introspection: "+err.Error()
		return rep
	}
	if done {
		rep.Outcome, rep.Reason = OutcomeSkipped, reason
		return rep
	}

	if st.Atomic {
		err = r.schema.Atomic(ctx, func(s Schema) error { return execute(ctx, s, st) })
	} else {
		err = execute(ctx, r.schema, st)
	}
	if err != nil {
		// Another runner may have raced us to the same post-condition.
		if done, _, cerr := r.satisfied(ctx, st); cerr == nil && done {
			rep.Outcome, rep.Reason = OutcomeSkipped, "applied concurrently"
			return rep
		}
		rep.Outcome, rep.Reason = OutcomeFailed, err.Error()
		return rep
	}
	rep.Outcome = OutcomeApplied
	return rep
}

// satisfied reports whether the post-condition of st already holds.
func (r *Runner) satisfied(ctx context.Context, st Step) (bool, string, error) {
	s := r.schema
	switch st.Action {
	case ActionCreateTable:
		ok, err := s.HasTable(ctx, st.Table)
		return ok, "table exists", err
	case ActionAddColumn:
		ok, err := s.HasColumn(ctx, st.Table, st.Column.Name)
		return ok, "column exists", err
	case ActionSetDefault:
		ok, err := s.HasDefault(ctx, st.Table, st.Column.Name)
		return ok, "default already set", err
	case ActionBackfillNull:
		nulls, err := s.HasNulls(ctx, st.Table, st.Column.Name)
		return !nulls, "no NULL values", err
	case ActionAddConstraint:
		exists, validated, err := s.HasConstraint(ctx, st.Table, st.Constraint.Name)
		return exists && validated, "constraint exists", err
	case ActionDropConstraint:
		exists, _, err := s.HasConstraint(ctx, st.Table, st.Constraint.Name)
		return !exists, "constraint absent", err
	case ActionAddIndex:
		exists, valid, err := s.HasIndex(ctx, st.Table, st.Index.Name)
		return exists && valid, "index exists", err
	case ActionRenameColumn:
		oldExists, err := s.HasColumn(ctx, st.Table, st.OldColumn)
		if err != nil {
			return false, "", err
		}
		newExists, err := s.HasColumn(ctx, st.Table, st.Column.Name)
		if err != nil {
			return false, "", err
		}
		switch {
		case !oldExists && newExists:
			return true, "already renamed", nil
		case !oldExists:
			return true, "column " + st.OldColumn + " absent", nil
		case newExists:
			return true, "both " + st.OldColumn + " and " + st.Column.Name + " exist", nil
		}
		return false, "", nil
	}
	return false, "", fmt.Errorf("unknown action %q", st.Action)
}

func execute(ctx context.Context, s Schema, st Step) error {
	switch st.Action {
	case ActionCreateTable:
		return s.CreateTable(ctx, st.Create)
	case ActionAddColumn:
		return s.AddColumn(ctx, st.Table, st.Column)
	case ActionSetDefault:
		return s.SetDefault(ctx, st.Table, st.Column.Name, st.Column.Default)
	case ActionBackfillNull:
		return s.BackfillNull(ctx, st.Table, st.Column.Name, st.Column.Default)
	case ActionAddConstraint:
		exists, validated, err := s.HasConstraint(ctx, st.Table, st.Constraint.Name)
		if err != nil {
			return err
		}
		if !exists {
			if err := s.AddConstraint(ctx, st.Table, st.Constraint); err != nil {
				return err
			}
			_, validated, err = s.HasConstraint(ctx, st.Table, st.Constraint.Name)
			if err != nil {
				return err
			}
		}
		if !validated {
			if err := s.ValidateConstraint(ctx, st.Table, st.Constraint.Name); err != nil {
				return fmt.Errorf("validate %s: %w", st.Constraint.Name, err)
			}
		}
		return nil
	case ActionDropConstraint:
		return s.DropConstraint(ctx, st.Table, st.Constraint.Name)
	case ActionRenameColumn:
		return s.RenameColumn(ctx, st.Table, st.OldColumn, st.Column.Name)
	case ActionAddIndex:
		return s.AddIndex(ctx, st.Table, st.Index)
	}
	return fmt.Errorf("unknown action %q", st.Action)
}
