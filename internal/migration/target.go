package migration

import "hr-request-backend/internal/model"

// TargetSteps is the schema the request engine reads and writes. Steps for
// columns and constraints upgrade databases created by older releases; on a
// fresh database most of them are skipped because CreateTable already laid
// the columns down.
func TargetSteps() []Step {
	return []Step{
		// tables
		{ID: "users.create", Action: ActionCreateTable, Table: "users", Create: TableSpec{Name: "users", Model: &model.Employee{}}},
		{ID: "requests.create", Action: ActionCreateTable, Table: "requests", Create: TableSpec{Name: "requests", Model: &model.Request{}}},
		{ID: "attendance_punches.create", Action: ActionCreateTable, Table: "attendance_punches", Create: TableSpec{Name: "attendance_punches", Model: &model.AttendancePunch{}}},
		{ID: "holidays.create", Action: ActionCreateTable, Table: "holidays", Create: TableSpec{Name: "holidays", Model: &model.Holiday{}}},

		// users
		{ID: "users.active.add", Action: ActionAddColumn, Table: "users", Column: ColumnDef{Name: "active", Type: "boolean", Default: "true"}},
		{ID: "users.active.default", Action: ActionSetDefault, Table: "users", Column: ColumnDef{Name: "active", Default: "true"}},
		{ID: "users.active.backfill", Action: ActionBackfillNull, Table: "users", Column: ColumnDef{Name: "active", Default: "true"}},
		{ID: "users.role.add", Action: ActionAddColumn, Table: "users", Column: ColumnDef{Name: "role", Type: "varchar(32)", Default: "'staff'"}},
		{ID: "users.role.backfill", Action: ActionBackfillNull, Table: "users", Column: ColumnDef{Name: "role", Default: "'staff'"}},
		{ID: "users.reports_to_empid.add", Action: ActionAddColumn, Table: "users", Column: ColumnDef{Name: "reports_to_empid", Type: "varchar(64)"}},
		{
			ID: "users.reports_to_empid.fk", Action: ActionAddConstraint, Table: "users",
			Constraint: ConstraintDef{
				Name: "fk_users_reports_to", Kind: ConstraintForeignKey,
				Columns: []string{"reports_to_empid"}, RefTable: "users", RefColumns: []string{"empid"}, OnDelete: "SET NULL",
			},
			Prereqs: []Prereq{UniqueKey("users", "empid")},
		},

		// requests
		{ID: "requests.type_label.rename", Action: ActionRenameColumn, Table: "requests", OldColumn: "leave_type", Column: ColumnDef{Name: "type_label"}, Atomic: true},
		{ID: "requests.kind.add", Action: ActionAddColumn, Table: "requests", Column: ColumnDef{Name: "kind", Type: "varchar(16)", Default: "'permission'"}},
		{ID: "requests.kind.backfill", Action: ActionBackfillNull, Table: "requests", Column: ColumnDef{Name: "kind", Default: "'permission'"}},
		{ID: "requests.status.default", Action: ActionSetDefault, Table: "requests", Column: ColumnDef{Name: "status", Default: "'pending'"}},
		{ID: "requests.status.backfill", Action: ActionBackfillNull, Table: "requests", Column: ColumnDef{Name: "status", Default: "'pending'"}},
		{ID: "requests.business_days.add", Action: ActionAddColumn, Table: "requests", Column: ColumnDef{Name: "business_days", Type: "integer", Default: "0"}},
		{ID: "requests.business_days.backfill", Action: ActionBackfillNull, Table: "requests", Column: ColumnDef{Name: "business_days", Default: "0"}},
		{ID: "requests.decided_by_name.add", Action: ActionAddColumn, Table: "requests", Column: ColumnDef{Name: "decided_by_name", Type: "varchar(255)"}},
		{
			ID: "requests.empid.fk", Action: ActionAddConstraint, Table: "requests",
			Constraint: ConstraintDef{
				Name: "fk_requests_empid", Kind: ConstraintForeignKey,
				Columns: []string{"empid"}, RefTable: "users", RefColumns: []string{"empid"}, OnDelete: "RESTRICT",
			},
			Prereqs: []Prereq{UniqueKey("users", "empid")},
		},
		{
			ID: "requests.time_order.check", Action: ActionAddConstraint, Table: "requests",
			Constraint: ConstraintDef{Name: "chk_requests_time_order", Kind: ConstraintCheck, Columns: []string{"from_ts", "to_ts"}, Expr: "from_ts < to_ts"},
		},
		{
			ID: "requests.status.check", Action: ActionAddConstraint, Table: "requests",
			Constraint: ConstraintDef{Name: "chk_requests_status", Kind: ConstraintCheck, Columns: []string{"status"}, Expr: "status IN ('pending', 'approved', 'rejected')"},
		},
		{
			ID: "requests.legacy_status.drop", Action: ActionDropConstraint, Table: "requests",
			Constraint: ConstraintDef{Name: "chk_requests_legacy_status"},
		},
		{ID: "requests.empid_from.index", Action: ActionAddIndex, Table: "requests", Index: IndexDef{Name: "idx_requests_empid_from", Columns: []string{"empid", "from_ts"}}},
		{ID: "requests.empid_status.index", Action: ActionAddIndex, Table: "requests", Index: IndexDef{Name: "idx_requests_empid_status", Columns: []string{"empid", "status"}}},
		{
			ID: "requests.no_overlap.exclude", Action: ActionAddConstraint, Table: "requests",
			Constraint: ConstraintDef{
				Name: "requests_no_overlap", Kind: ConstraintExclusion, Columns: []string{"empid", "from_ts", "to_ts", "status"},
				Expr: "USING gist (empid WITH =, tstzrange(from_ts, to_ts, '[)') WITH &&) WHERE (status <> 'rejected')",
			},
			Prereqs:  []Prereq{ExtensionExists("btree_gist")},
			Dialects: []string{DialectPostgres},
		},

		// attendance_punches
		{ID: "attendance_punches.name_snapshot.add", Action: ActionAddColumn, Table: "attendance_punches", Column: ColumnDef{Name: "name_snapshot", Type: "varchar(255)"}},
		{ID: "attendance_punches.request_id.add", Action: ActionAddColumn, Table: "attendance_punches", Column: ColumnDef{Name: "request_id", Type: "bigint"}},
		{ID: "attendance_punches.status.add", Action: ActionAddColumn, Table: "attendance_punches", Column: ColumnDef{Name: "status", Type: "varchar(16)", Default: "'present'"}},
		{ID: "attendance_punches.status.backfill", Action: ActionBackfillNull, Table: "attendance_punches", Column: ColumnDef{Name: "status", Default: "'present'"}},
		{
			ID: "attendance_punches.request_id.fk", Action: ActionAddConstraint, Table: "attendance_punches",
			Constraint: ConstraintDef{
				Name: "fk_punches_request", Kind: ConstraintForeignKey,
				Columns: []string{"request_id"}, RefTable: "requests", RefColumns: []string{"id"}, OnDelete: "SET NULL",
			},
		},
		{ID: "attendance_punches.empid_date.index", Action: ActionAddIndex, Table: "attendance_punches", Index: IndexDef{Name: "idx_punches_empid_date", Columns: []string{"empid", "date"}}},
		{
			ID: "attendance_punches.identity.index", Action: ActionAddIndex, Table: "attendance_punches",
			Index: IndexDef{Name: "ux_punches_identity", Columns: []string{"empid", "date", "punch_kind", "punch_ts"}, Unique: true},
		},
	}
}
