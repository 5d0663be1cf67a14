package migration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm/schema"
)

type memColumn struct {
	hasDefault bool
	nulls      bool
}

// memSchema is an in-memory Schema. Constraints added on postgres start out
// not validated, like NOT VALID does.
type memSchema struct {
	mu          sync.Mutex
	dialect     string
	tables      map[string]map[string]*memColumn
	constraints map[string]map[string]bool // table -> name -> validated
	indexes     map[string]map[string]bool // table -> name -> valid
	unique      map[string]bool            // table.column
	extensions  map[string]bool

	calls       []string
	fail        map[string]error // op:target -> error
	validateErr map[string]error
	// before runs ahead of every DDL call, outside the lock.
	before func(op, target string)
	// mutateThenFail applies the op and then returns the error, so only a
	// rollback can undo it.
	mutateThenFail map[string]error
}

func newMemSchema(dialect string) *memSchema {
	return &memSchema{
		dialect:        dialect,
		tables:         map[string]map[string]*memColumn{},
		constraints:    map[string]map[string]bool{},
		indexes:        map[string]map[string]bool{},
		unique:         map[string]bool{},
		extensions:     map[string]bool{},
		fail:           map[string]error{},
		validateErr:    map[string]error{},
		mutateThenFail: map[string]error{},
	}
}

// addTable creates a legacy table by hand.
func (s *memSchema) addTable(name string, cols ...string) {
	t := map[string]*memColumn{}
	for _, c := range cols {
		t[c] = &memColumn{}
	}
	s.tables[name] = t
}

func (s *memSchema) Dialect() string { return s.dialect }

func (s *memSchema) enter(op, target string) error {
	if s.before != nil {
		s.before(op, target)
	}
	s.mu.Lock()
	s.calls = append(s.calls, op+":"+target)
	err := s.fail[op+":"+target]
	s.mu.Unlock()
	return err
}

func (s *memSchema) HasTable(ctx context.Context, table string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[table]
	return ok, nil
}

func (s *memSchema) HasColumn(ctx context.Context, table, column string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[table][column]
	return ok, nil
}

func (s *memSchema) column(table, column string) (*memColumn, error) {
	c, ok := s.tables[table][column]
	if !ok {
		return nil, fmt.Errorf("column %s.%s does not exist", table, column)
	}
	return c, nil
}

func (s *memSchema) HasDefault(ctx context.Context, table, column string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.tables[table][column]
	return ok && c.hasDefault, nil
}

func (s *memSchema) HasNulls(ctx context.Context, table, column string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(table, column)
	if err != nil {
		return false, err
	}
	return c.nulls, nil
}

func (s *memSchema) HasConstraint(ctx context.Context, table, name string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	validated, ok := s.constraints[table][name]
	return ok, validated, nil
}

func (s *memSchema) HasIndex(ctx context.Context, table, name string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	valid, ok := s.indexes[table][name]
	return ok, valid, nil
}

func (s *memSchema) HasExtension(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extensions[name], nil
}

func (s *memSchema) IsUniqueKey(ctx context.Context, table, column string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unique[table+"."+column], nil
}

func (s *memSchema) CreateTable(ctx context.Context, spec TableSpec) error {
	if err := s.enter("create_table", spec.Name); err != nil {
		return err
	}
	sch, err := schema.Parse(spec.Model, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[spec.Name]; ok {
		return fmt.Errorf("relation %q already exists", spec.Name)
	}
	cols := map[string]*memColumn{}
	for _, f := range sch.Fields {
		if f.DBName == "" {
			continue
		}
		cols[f.DBName] = &memColumn{hasDefault: f.HasDefaultValue && f.DefaultValue != ""}
		if f.Unique {
			s.unique[spec.Name+"."+f.DBName] = true
		}
	}
	if len(sch.PrimaryFields) == 1 {
		s.unique[spec.Name+"."+sch.PrimaryFields[0].DBName] = true
	}
	s.tables[spec.Name] = cols
	for _, idx := range sch.ParseIndexes() {
		if s.indexes[spec.Name] == nil {
			s.indexes[spec.Name] = map[string]bool{}
		}
		s.indexes[spec.Name][idx.Name] = true
		if idx.Class == "UNIQUE" && len(idx.Fields) == 1 {
			s.unique[spec.Name+"."+idx.Fields[0].DBName] = true
		}
	}
	return nil
}

func (s *memSchema) AddColumn(ctx context.Context, table string, col ColumnDef) error {
	if err := s.enter("add_column", table+"."+col.Name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table][col.Name]; ok {
		return fmt.Errorf("column %q of relation %q already exists", col.Name, table)
	}
	// Rows that already exist get the default, or NULL without one.
	s.tables[table][col.Name] = &memColumn{hasDefault: col.Default != "", nulls: col.Default == ""}
	return nil
}

func (s *memSchema) SetDefault(ctx context.Context, table, column, literal string) error {
	if err := s.enter("set_default", table+"."+column); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(table, column)
	if err != nil {
		return err
	}
	c.hasDefault = true
	return nil
}

func (s *memSchema) BackfillNull(ctx context.Context, table, column, literal string) error {
	if err := s.enter("backfill_null", table+"."+column); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(table, column)
	if err != nil {
		return err
	}
	c.nulls = false
	return nil
}

func (s *memSchema) AddConstraint(ctx context.Context, table string, c ConstraintDef) error {
	if err := s.enter("add_constraint", c.Name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.constraints[table][c.Name]; ok {
		return fmt.Errorf("constraint %q already exists", c.Name)
	}
	if s.constraints[table] == nil {
		s.constraints[table] = map[string]bool{}
	}
	s.constraints[table][c.Name] = !(s.dialect == DialectPostgres && c.Validatable())
	return nil
}

func (s *memSchema) ValidateConstraint(ctx context.Context, table, name string) error {
	if err := s.enter("validate_constraint", name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validateErr[name]; err != nil {
		return err
	}
	s.constraints[table][name] = true
	return nil
}

func (s *memSchema) DropConstraint(ctx context.Context, table, name string) error {
	if err := s.enter("drop_constraint", name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.constraints[table][name]; !ok {
		return fmt.Errorf("constraint %q does not exist", name)
	}
	delete(s.constraints[table], name)
	return nil
}

func (s *memSchema) RenameColumn(ctx context.Context, table, oldName, newName string) error {
	if err := s.enter("rename_column", table+"."+oldName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(table, oldName)
	if err != nil {
		return err
	}
	delete(s.tables[table], oldName)
	s.tables[table][newName] = c
	return s.mutateThenFail["rename_column:"+table+"."+oldName]
}

func (s *memSchema) AddIndex(ctx context.Context, table string, idx IndexDef) error {
	if err := s.enter("add_index", idx.Name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexes[table] == nil {
		s.indexes[table] = map[string]bool{}
	}
	s.indexes[table][idx.Name] = true
	if idx.Unique && len(idx.Columns) == 1 {
		s.unique[table+"."+idx.Columns[0]] = true
	}
	return nil
}

func (s *memSchema) Atomic(ctx context.Context, fn func(Schema) error) error {
	s.mu.Lock()
	snapshot := s.cloneState()
	s.mu.Unlock()
	if err := fn(s); err != nil {
		s.mu.Lock()
		s.tables = snapshot.tables
		s.constraints = snapshot.constraints
		s.indexes = snapshot.indexes
		s.unique = snapshot.unique
		s.mu.Unlock()
		return err
	}
	return nil
}

type memState struct {
	tables      map[string]map[string]*memColumn
	constraints map[string]map[string]bool
	indexes     map[string]map[string]bool
	unique      map[string]bool
}

func (s *memSchema) cloneState() memState {
	st := memState{
		tables:      map[string]map[string]*memColumn{},
		constraints: map[string]map[string]bool{},
		indexes:     map[string]map[string]bool{},
		unique:      map[string]bool{},
	}
	for t, cols := range s.tables {
		st.tables[t] = map[string]*memColumn{}
		for n, c := range cols {
			cp := *c
			st.tables[t][n] = &cp
		}
	}
	for t, m := range s.constraints {
		st.constraints[t] = map[string]bool{}
		for k, v := range m {
			st.constraints[t][k] = v
		}
	}
	for t, m := range s.indexes {
		st.indexes[t] = map[string]bool{}
		for k, v := range m {
			st.indexes[t][k] = v
		}
	}
	for k, v := range s.unique {
		st.unique[k] = v
	}
	return st
}

// dump renders the schema shape for comparisons.
func (s *memSchema) dump() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []string
	for t, cols := range s.tables {
		for n, c := range cols {
			lines = append(lines, fmt.Sprintf("column %s.%s default=%t nulls=%t", t, n, c.hasDefault, c.nulls))
		}
	}
	for t, m := range s.constraints {
		for n, v := range m {
			lines = append(lines, fmt.Sprintf("constraint %s.%s validated=%t", t, n, v))
		}
	}
	for t, m := range s.indexes {
		for n, v := range m {
			lines = append(lines, fmt.Sprintf("index %s.%s valid=%t", t, n, v))
		}
	}
	for k, v := range s.unique {
		if v {
			lines = append(lines, "unique "+k)
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func (s *memSchema) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
