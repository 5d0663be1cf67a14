// Package migration brings a live database to the shape the service needs.
// Steps are idempotent and guarded by introspection, so a batch can be run
// repeatedly, in any order and next to live traffic.
package migration

import (
	"fmt"
	"strings"
)

type Action string

const (
	ActionCreateTable    Action = "create_table"
	ActionAddColumn      Action = "add_column"
	ActionSetDefault     Action = "set_default"
	ActionBackfillNull   Action = "backfill_null"
	ActionAddConstraint  Action = "add_constraint"
	ActionDropConstraint Action = "drop_constraint"
	ActionRenameColumn   Action = "rename_column"
	ActionAddIndex       Action = "add_index"
)

type PrereqKind string

const (
	PrereqTable     PrereqKind = "table"
	PrereqColumn    PrereqKind = "column"
	PrereqExtension PrereqKind = "extension"
	PrereqUniqueKey PrereqKind = "unique_key" // column is a primary key or carries a single-column unique index
)

type Prereq struct {
	Kind   PrereqKind
	Table  string
	Column string
	Name   string // extension name
}

func (p Prereq) String() string {
	switch p.Kind {
	case PrereqTable:
		return "table " + p.Table
	case PrereqExtension:
		return "extension " + p.Name
	case PrereqUniqueKey:
		return "unique key " + p.Table + "." + p.Column
	}
	return "column " + p.Table + "." + p.Column
}

func TableExists(table string) Prereq { return Prereq{Kind: PrereqTable, Table: table} }

func ColumnExists(table, column string) Prereq {
	return Prereq{Kind: PrereqColumn, Table: table, Column: column}
}

func ExtensionExists(name string) Prereq { return Prereq{Kind: PrereqExtension, Name: name} }

func UniqueKey(table, column string) Prereq {
	return Prereq{Kind: PrereqUniqueKey, Table: table, Column: column}
}

// TableSpec creates a table from a gorm model.
type TableSpec struct {
	Name  string
	Model interface{}
}

// ColumnDef describes an added column. Type must be valid on every dialect the
// step runs on. Default is a SQL literal, e.g. 'pending' or true.
type ColumnDef struct {
	Name    string
	Type    string
	Default string
}

type ConstraintKind string

const (
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintExclusion  ConstraintKind = "exclusion"
)

type ConstraintDef struct {
	Name       string
	Kind       ConstraintKind
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string // CASCADE, SET NULL, RESTRICT
	Expr       string // CHECK expression or EXCLUDE body
}

// Validatable reports whether the constraint can be added NOT VALID and
// validated in a second statement.
func (c ConstraintDef) Validatable() bool {
	return c.Kind == ConstraintForeignKey || c.Kind == ConstraintCheck
}

type IndexDef struct {
	Name    string
	Columns []string
	Unique  bool
}

// Step is one idempotent schema operation. Only the fields of its Action are read.
type Step struct {
	ID     string
	Action Action
	Table  string

	Create     TableSpec     // create_table
	Column     ColumnDef     // add_column; Name alone for set_default, backfill_null
	OldColumn  string        // rename_column: Column.Name is the new name
	Constraint ConstraintDef // add_constraint, drop_constraint (Name only)
	Index      IndexDef      // add_index

	Prereqs  []Prereq
	Dialects []string // empty means every dialect
	Atomic   bool     // run inside one transaction and roll back on failure
}

func (s Step) supports(dialect string) bool {
	if len(s.Dialects) == 0 {
		return true
	}
	for _, d := range s.Dialects {
		if d == dialect {
			return true
		}
	}
	return false
}

// requires adds the prerequisites implied by the action to the declared ones.
func (s Step) requires() []Prereq {
	var out []Prereq
	switch s.Action {
	case ActionCreateTable:
	case ActionSetDefault, ActionBackfillNull:
		out = append(out, TableExists(s.Table), ColumnExists(s.Table, s.Column.Name))
	case ActionAddIndex:
		out = append(out, TableExists(s.Table))
		for _, c := range s.Index.Columns {
			out = append(out, ColumnExists(s.Table, c))
		}
	case ActionAddConstraint:
		out = append(out, TableExists(s.Table))
		for _, c := range s.Constraint.Columns {
			out = append(out, ColumnExists(s.Table, c))
		}
		if s.Constraint.Kind == ConstraintForeignKey {
			out = append(out, TableExists(s.Constraint.RefTable))
			for _, c := range s.Constraint.RefColumns {
				out = append(out, ColumnExists(s.Constraint.RefTable, c))
			}
		}
	default:
		out = append(out, TableExists(s.Table))
	}
	return append(out, s.Prereqs...)
}

// provides lists what a successful run makes true, used by Plan.
func (s Step) provides() []Prereq {
	switch s.Action {
	case ActionCreateTable:
		return []Prereq{TableExists(s.Table)}
	case ActionAddColumn, ActionRenameColumn:
		return []Prereq{ColumnExists(s.Table, s.Column.Name)}
	case ActionAddIndex:
		if s.Index.Unique && len(s.Index.Columns) == 1 {
			return []Prereq{UniqueKey(s.Table, s.Index.Columns[0])}
		}
	}
	return nil
}

func (s Step) validate() error {
	if s.ID == "" {
		return fmt.Errorf("migration: step without id")
	}
	if s.Table == "" {
		return fmt.Errorf("migration: step %s: table is required", s.ID)
	}
	var missing []string
	switch s.Action {
	case ActionCreateTable:
		if s.Create.Model == nil {
			missing = append(missing, "model")
		}
	case ActionAddColumn:
		if s.Column.Name == "" || s.Column.Type == "" {
			missing = append(missing, "column name and type")
		}
	case ActionSetDefault, ActionBackfillNull:
		if s.Column.Name == "" || s.Column.Default == "" {
			missing = append(missing, "column name and default")
		}
	case ActionRenameColumn:
		if s.OldColumn == "" || s.Column.Name == "" {
			missing = append(missing, "old and new column names")
		}
	case ActionAddConstraint:
		c := s.Constraint
		if c.Name == "" {
			missing = append(missing, "constraint name")
		}
		if c.Kind == ConstraintForeignKey && (len(c.Columns) == 0 || c.RefTable == "" || len(c.Columns) != len(c.RefColumns)) {
			missing = append(missing, "foreign key columns")
		}
		if (c.Kind == ConstraintCheck || c.Kind == ConstraintExclusion) && c.Expr == "" {
			missing = append(missing, "constraint expression")
		}
	case ActionDropConstraint:
		if s.Constraint.Name == "" {
			missing = append(missing, "constraint name")
		}
	case ActionAddIndex:
		if s.Index.Name == "" || len(s.Index.Columns) == 0 {
			missing = append(missing, "index name and columns")
		}
	default:
		return fmt.Errorf("migration: step %s: unknown action %q", s.ID, s.Action)
	}
	if len(missing) > 0 {
		return fmt.Errorf("migration: step %s: %s required", s.ID, strings.Join(missing, ", "))
	}
	return nil
}

type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

type StepReport struct {
	StepID  string  `json:"step_id"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

type PlanEntry struct {
	StepID     string `json:"step_id"`
	Action     Action `json:"action"`
	WouldApply bool   `json:"would_apply"`
	Reason     string `json:"reason,omitempty"`
}
