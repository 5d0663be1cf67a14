package migration

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Schema is the introspection and DDL surface the runner drives.
type Schema interface {
	Dialect() string

	HasTable(ctx context.Context, table string) (bool, error)
	HasColumn(ctx context.Context, table, column string) (bool, error)
	HasDefault(ctx context.Context, table, column string) (bool, error)
	HasNulls(ctx context.Context, table, column string) (bool, error)
	// HasConstraint reports existence and, where the dialect tracks it, validation.
	HasConstraint(ctx context.Context, table, name string) (exists, validated bool, err error)
	HasIndex(ctx context.Context, table, name string) (exists, valid bool, err error)
	HasExtension(ctx context.Context, name string) (bool, error)
	IsUniqueKey(ctx context.Context, table, column string) (bool, error)

	CreateTable(ctx context.Context, spec TableSpec) error
	AddColumn(ctx context.Context, table string, col ColumnDef) error
	SetDefault(ctx context.Context, table, column, literal string) error
	BackfillNull(ctx context.Context, table, column, literal string) error
	// AddConstraint adds c NOT VALID where the dialect supports it.
	AddConstraint(ctx context.Context, table string, c ConstraintDef) error
	ValidateConstraint(ctx context.Context, table, name string) error
	DropConstraint(ctx context.Context, table, name string) error
	RenameColumn(ctx context.Context, table, oldName, newName string) error
	AddIndex(ctx context.Context, table string, idx IndexDef) error

	// Atomic runs fn against a schema bound to one transaction.
	Atomic(ctx context.Context, fn func(Schema) error) error
}

type GormSchema struct {
	db      *gorm.DB
	dialect string
}

func NewGormSchema(db *gorm.DB) *GormSchema {
	return &GormSchema{db: db, dialect: db.Dialector.Name()}
}

func (s *GormSchema) Dialect() string { return s.dialect }

func (s *GormSchema) pg() bool { return s.dialect == DialectPostgres }

// schemaFilter restricts information_schema lookups to the connection's schema.
func (s *GormSchema) schemaFilter() string {
	if s.pg() {
		return "CURRENT_SCHEMA()"
	}
	return "DATABASE()"
}

func (s *GormSchema) HasTable(ctx context.Context, table string) (bool, error) {
	return s.db.WithContext(ctx).Migrator().HasTable(table), nil
}

func (s *GormSchema) HasColumn(ctx context.Context, table, column string) (bool, error) {
	return s.db.WithContext(ctx).Migrator().HasColumn(table, column), nil
}

func (s *GormSchema) HasDefault(ctx context.Context, table, column string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		"SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = "+s.schemaFilter()+
			" AND table_name = ? AND column_name = ? AND column_default IS NOT NULL", table, column).
		Scan(&count).Error
	return count > 0, err
}

func (s *GormSchema) HasNulls(ctx context.Context, table, column string) (bool, error) {
	var hits []int
	err := s.db.WithContext(ctx).Raw("SELECT 1 FROM ? WHERE ? IS NULL LIMIT 1",
		clause.Table{Name: table}, clause.Column{Name: column}).
		Scan(&hits).Error
	return len(hits) > 0, err
}

func (s *GormSchema) HasConstraint(ctx context.Context, table, name string) (bool, bool, error) {
	db := s.db.WithContext(ctx)
	if s.pg() {
		var validated []bool
		err := db.Raw(`SELECT c.convalidated FROM pg_constraint c
			JOIN pg_class t ON t.oid = c.conrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			WHERE n.nspname = CURRENT_SCHEMA() AND t.relname = ? AND c.conname = ?`, table, name).
			Scan(&validated).Error
		if err != nil || len(validated) == 0 {
			return false, false, err
		}
		return true, validated[0], nil
	}
	var count int64
	err := db.Raw(`SELECT COUNT(*) FROM information_schema.table_constraints
		WHERE constraint_schema = DATABASE() AND table_name = ? AND constraint_name = ?`, table, name).
		Scan(&count).Error
	return count > 0, count > 0, err
}

func (s *GormSchema) HasIndex(ctx context.Context, table, name string) (bool, bool, error) {
	db := s.db.WithContext(ctx)
	if s.pg() {
		// A failed CREATE INDEX CONCURRENTLY leaves an invalid index behind.
		var valid []bool
		err := db.Raw(`SELECT i.indisvalid FROM pg_index i
			JOIN pg_class c ON c.oid = i.indexrelid
			JOIN pg_class t ON t.oid = i.indrelid
			JOIN pg_namespace n ON n.oid = c.relnamespace
			WHERE n.nspname = CURRENT_SCHEMA() AND t.relname = ? AND c.relname = ?`, table, name).
			Scan(&valid).Error
		if err != nil || len(valid) == 0 {
			return false, false, err
		}
		return true, valid[0], nil
	}
	ok := db.Migrator().HasIndex(table, name)
	return ok, ok, nil
}

func (s *GormSchema) HasExtension(ctx context.Context, name string) (bool, error) {
	if !s.pg() {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Raw("SELECT COUNT(*) FROM pg_extension WHERE extname = ?", name).Scan(&count).Error
	return count > 0, err
}

func (s *GormSchema) IsUniqueKey(ctx context.Context, table, column string) (bool, error) {
	var count int64
	db := s.db.WithContext(ctx)
	if s.pg() {
		err := db.Raw(`SELECT COUNT(*) FROM pg_index i
			JOIN pg_class t ON t.oid = i.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = i.indkey[0]
			WHERE n.nspname = CURRENT_SCHEMA() AND t.relname = ? AND a.attname = ?
			AND i.indisunique AND i.indisvalid AND i.indnatts = 1 AND i.indpred IS NULL`, table, column).
			Scan(&count).Error
		return count > 0, err
	}
	err := db.Raw(`SELECT COUNT(*) FROM information_schema.statistics s
		WHERE s.table_schema = DATABASE() AND s.table_name = ? AND s.column_name = ? AND s.non_unique = 0
		AND (SELECT COUNT(*) FROM information_schema.statistics x
			WHERE x.table_schema = s.table_schema AND x.table_name = s.table_name AND x.index_name = s.index_name) = 1`,
		table, column).
		Scan(&count).Error
	return count > 0, err
}

func (s *GormSchema) CreateTable(ctx context.Context, spec TableSpec) error {
	return s.db.WithContext(ctx).Migrator().CreateTable(spec.Model)
}

func (s *GormSchema) AddColumn(ctx context.Context, table string, col ColumnDef) error {
	sql := "ALTER TABLE ? ADD COLUMN ? " + col.Type
	if col.Default != "" {
		sql += " DEFAULT " + col.Default
	}
	return s.db.WithContext(ctx).Exec(sql, clause.Table{Name: table}, clause.Column{Name: col.Name}).Error
}

func (s *GormSchema) SetDefault(ctx context.Context, table, column, literal string) error {
	return s.db.WithContext(ctx).Exec("ALTER TABLE ? ALTER COLUMN ? SET DEFAULT "+literal,
		clause.Table{Name: table}, clause.Column{Name: column}).Error
}

func (s *GormSchema) BackfillNull(ctx context.Context, table, column, literal string) error {
	return s.db.WithContext(ctx).Exec("UPDATE ? SET ? = ? WHERE ? IS NULL",
		clause.Table{Name: table}, clause.Column{Name: column}, gorm.Expr(literal), clause.Column{Name: column}).Error
}

func columns(names []string) []clause.Column {
	out := make([]clause.Column, len(names))
	for i, n := range names {
		out[i] = clause.Column{Name: n}
	}
	return out
}

func (s *GormSchema) AddConstraint(ctx context.Context, table string, c ConstraintDef) error {
	vars := []interface{}{clause.Table{Name: table}, clause.Column{Name: c.Name}}
	var sql string
	switch c.Kind {
	case ConstraintForeignKey:
		sql = "ALTER TABLE ? ADD CONSTRAINT ? FOREIGN KEY ? REFERENCES ? ?"
		vars = append(vars, columns(c.Columns), clause.Table{Name: c.RefTable}, columns(c.RefColumns))
		if c.OnDelete != "" {
			sql += " ON DELETE " + c.OnDelete
		}
	case ConstraintCheck:
		sql = "ALTER TABLE ? ADD CONSTRAINT ? CHECK (?)"
		vars = append(vars, gorm.Expr(c.Expr))
	case ConstraintExclusion:
		if !s.pg() {
			return fmt.Errorf("exclusion constraints need postgres")
		}
		sql = "ALTER TABLE ? ADD CONSTRAINT ? EXCLUDE ?"
		vars = append(vars, gorm.Expr(c.Expr))
	default:
		return fmt.Errorf("unknown constraint kind %q", c.Kind)
	}
	if s.pg() && c.Validatable() {
		sql += " NOT VALID"
	}
	return s.db.WithContext(ctx).Exec(sql, vars...).Error
}

func (s *GormSchema) ValidateConstraint(ctx context.Context, table, name string) error {
	if !s.pg() {
		return nil
	}
	return s.db.WithContext(ctx).Exec("ALTER TABLE ? VALIDATE CONSTRAINT ?",
		clause.Table{Name: table}, clause.Column{Name: name}).Error
}

func (s *GormSchema) DropConstraint(ctx context.Context, table, name string) error {
	return s.db.WithContext(ctx).Exec("ALTER TABLE ? DROP CONSTRAINT ?",
		clause.Table{Name: table}, clause.Column{Name: name}).Error
}

func (s *GormSchema) RenameColumn(ctx context.Context, table, oldName, newName string) error {
	return s.db.WithContext(ctx).Migrator().RenameColumn(table, oldName, newName)
}

func (s *GormSchema) AddIndex(ctx context.Context, table string, idx IndexDef) error {
	db := s.db.WithContext(ctx)
	kind := "INDEX"
	if idx.Unique {
		kind = "UNIQUE INDEX"
	}
	if !s.pg() {
		return db.Exec("CREATE "+kind+" ? ON ? ?",
			clause.Column{Name: idx.Name}, clause.Table{Name: table}, columns(idx.Columns)).Error
	}
	// CONCURRENTLY cannot run inside a transaction block and leaves an invalid
	// index behind on failure, which has to be dropped before retrying.
	if _, valid, err := s.HasIndex(ctx, table, idx.Name); err != nil {
		return err
	} else if !valid {
		if err := db.Exec("DROP INDEX CONCURRENTLY IF EXISTS ?", clause.Column{Name: idx.Name}).Error; err != nil {
			return err
		}
	}
	return db.Exec("CREATE "+kind+" CONCURRENTLY IF NOT EXISTS ? ON ? ?",
		clause.Column{Name: idx.Name}, clause.Table{Name: table}, columns(idx.Columns)).Error
}

func (s *GormSchema) Atomic(ctx context.Context, fn func(Schema) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormSchema{db: tx, dialect: s.dialect})
	})
}

// String is used in logs.
func (s *GormSchema) String() string { return "gorm/" + strings.ToLower(s.dialect) }
