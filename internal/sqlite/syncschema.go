package sqlite

import (
	"cmp"
	"context"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/manuscript/internal/errors"
)

// schemaObject is a row of sqlite_schema.
type schemaObject struct {
	Type    string `db:"type"`
	Name    string `db:"name"`
	TblName string `db:"tbl_name"`
	SQL     string `db:"sql"`
	// rank is the position in sqlite_schema which follows declaration order.
	rank int
}

type schemaObjects map[string]schemaObject

const querySchemaObjects = `SELECT type, name, tbl_name, sql
FROM sqlite_schema
WHERE name NOT LIKE 'sqlite_%' AND sql IS NOT NULL
ORDER BY rowid`

// migrateTo ensures that the db schema matches the target schema.
//
// We employ a very simple declarative schema migration that:
//
// 1. Deletes deleted tables,
// 2. Creates new tables,
// 3. Migrates changed tables using 12-step schema migration https://www.sqlite.org/lang_altertable.html#otheralter,
// 4. Recreates indexes, triggers and views that differ from the target.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) error {
	target, err := loadTargetSchema(ctx, schemaDefinition)
	if err != nil {
		return errors.Wrap(err, "load target schema")
	}
	defer func() {
		if closeErr := target.db.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close scratch database", errors.SlogError(closeErr))
		}
	}()

	// The pragma and the transaction must share a connection.
	conn, err := db.ReadWrite.Connx(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to release migration connection",
				errors.SlogError(closeErr))
		}
	}()

	// Step 1: Disable foreign key validation temporarily.
	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	// Step 12: Re-enable foreign key validation.
	defer func() {
		if _, fkErr := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); fkErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "discard connection without foreign key validation",
				errors.SlogError(fkErr))
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
	}()

	// Step 2: Start transaction.
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err = db.migrateObjects(ctx, tx, target); err != nil {
		return err
	}

	// Step 10: Check foreign key constraints.
	var violations []struct {
		Table  string `db:"table"`
		RowID  *int64 `db:"rowid"`
		Parent string `db:"parent"`
		FKID   int64  `db:"fkid"`
	}
	if err = tx.SelectContext(ctx, &violations, "PRAGMA foreign_key_check"); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if len(violations) > 0 {
		return errors.New("foreign key violations after migration",
			slog.String("table", violations[0].Table),
			slog.String("parent", violations[0].Parent),
			slog.Int("count", len(violations)))
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// loadTargetSchema applies schemaDefinition to a scratch in-memory database and returns its objects.
func loadTargetSchema(ctx context.Context, schemaDefinition string) (*targetSchema, error) {
	scratch, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "open scratch database")
	}
	// Every connection to :memory: is a different database.
	scratch.SetMaxOpenConns(1)
	target := &targetSchema{db: scratch}
	if strings.TrimSpace(schemaDefinition) != "" {
		if _, err = scratch.ExecContext(ctx, schemaDefinition); err != nil {
			return nil, errors.Join(errors.Wrap(err, "apply schema definition"), scratch.Close())
		}
	}
	if target.objects, err = querySchema(ctx, scratch); err != nil {
		return nil, errors.Join(errors.Wrap(err, "query scratch schema"), scratch.Close())
	}
	return target, nil
}

type targetSchema struct {
	db      *sqlx.DB
	objects schemaObjects
}

func querySchema(ctx context.Context, q sqlx.QueryerContext) (schemaObjects, error) {
	var rows []schemaObject
	if err := sqlx.SelectContext(ctx, q, &rows, querySchemaObjects); err != nil {
		return nil, errors.Wrap(err, "select sqlite_schema")
	}
	objects := make(schemaObjects, len(rows))
	for i, row := range rows {
		row.rank = i
		objects[row.Type+":"+row.Name] = row
	}
	return objects, nil
}

func (db *Database) migrateObjects(ctx context.Context, tx *sqlx.Tx, target *targetSchema) error {
	current, err := querySchema(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "query current schema")
	}

	// Triggers and views can reference tables that are about to be rebuilt. They are recreated from the target
	// schema at the end.
	for _, object := range ordered(current) {
		if object.Type != "trigger" && object.Type != "view" {
			continue
		}
		if err = dropObject(ctx, tx, object); err != nil {
			return err
		}
	}

	if err = db.migrateTables(ctx, tx, current, target); err != nil {
		return errors.Wrap(err, "migrate tables")
	}

	// Step 8: Recreate indexes and triggers associated with table if needed.
	// Step 9: Recreate views associated with table.
	if current, err = querySchema(ctx, tx); err != nil {
		return errors.Wrap(err, "query migrated schema")
	}
	for key, object := range current {
		if object.Type != "index" {
			continue
		}
		if wanted, ok := target.objects[key]; ok && wanted.SQL == object.SQL {
			continue
		}
		if err = dropObject(ctx, tx, object); err != nil {
			return err
		}
		delete(current, key)
	}
	for _, kind := range []string{"index", "trigger", "view"} {
		for _, object := range ordered(target.objects) {
			if object.Type != kind {
				continue
			}
			if _, ok := current[object.Type+":"+object.Name]; ok {
				continue
			}
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating "+object.Type, slog.String("name", object.Name))
			if _, err = tx.ExecContext(ctx, object.SQL); err != nil {
				return errors.Wrap(err, "create "+object.Type, slog.String("name", object.Name))
			}
		}
	}
	return nil
}

// migrateTables ensures table schema is synchronized between databases.
func (db *Database) migrateTables(
	ctx context.Context,
	tx *sqlx.Tx,
	current schemaObjects,
	target *targetSchema,
) error {
	var err error

	// Drop deleted tables.
	for key, object := range current {
		if object.Type != "table" {
			continue
		}
		if _, ok := target.objects[key]; ok {
			continue
		}
		if err = dropObject(ctx, tx, object); err != nil {
			return err
		}
	}

	for _, object := range ordered(target.objects) {
		if object.Type != "table" {
			continue
		}
		existing, ok := current["table:"+object.Name]

		// Create new tables.
		if !ok {
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", object.SQL))
			if _, err = tx.ExecContext(ctx, object.SQL); err != nil {
				return errors.Wrap(err, "create table", slog.String("table", object.Name))
			}
			continue
		}

		if normalizeTableSQL(existing.SQL, object.Name) == object.SQL {
			continue
		}

		// Steps 3-7 rebuild tables with a changed schema.
		if err = db.rebuildTable(ctx, tx, object, target); err != nil {
			return errors.Wrap(err, "rebuild table", slog.String("table", object.Name))
		}
	}
	return nil
}

func (db *Database) rebuildTable(ctx context.Context, tx *sqlx.Tx, table schemaObject, target *targetSchema) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
		slog.String("table", table.Name),
		slog.String("new_sql", table.SQL))

	// Step 4: Create tables according to new schema on temporary names.
	tempName := table.Name + "_migration_temp"
	tempNameSQL := renameCreateTable(table.SQL, table.Name, tempName)
	if _, err := tx.ExecContext(ctx, tempNameSQL); err != nil {
		return errors.Wrap(err, "create new table to temporary name", slog.String("query", tempNameSQL))
	}

	// Step 5: Copy common columns between tables.
	const queryColumns = "SELECT name FROM pragma_table_info(?)"
	var currentColumns, targetColumns []string
	if err := tx.SelectContext(ctx, &currentColumns, queryColumns, table.Name); err != nil {
		return errors.Wrap(err, "query current columns")
	}
	if err := target.db.SelectContext(ctx, &targetColumns, queryColumns, table.Name); err != nil {
		return errors.Wrap(err, "query target columns")
	}
	var common []string
	for _, column := range currentColumns {
		for _, wanted := range targetColumns {
			if column == wanted {
				// Quoting handles column names that are SQLite keywords.
				common = append(common, quoteIdentifier(column))
			}
		}
	}
	if len(common) > 0 {
		columns := strings.Join(common, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", //nolint:gosec // identifiers come from sqlite_schema.
			quoteIdentifier(tempName), columns, columns, quoteIdentifier(table.Name))
		db.logger.LogAttrs(ctx, slog.LevelInfo, "copying data", slog.String("query", copySQL))
		if _, err := tx.ExecContext(ctx, copySQL); err != nil {
			return errors.Wrap(err, "copy data")
		}
	}

	// Step 6: Drop the old table.
	if _, err := tx.ExecContext(ctx, "DROP TABLE "+quoteIdentifier(table.Name)); err != nil {
		return errors.Wrap(err, "drop old table")
	}

	// Step 7: Rename new table to old table's name.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s",
		quoteIdentifier(tempName), quoteIdentifier(table.Name))); err != nil {
		return errors.Wrap(err, "rename new table")
	}
	return nil
}

func dropObject(ctx context.Context, tx *sqlx.Tx, object schemaObject) error {
	query := fmt.Sprintf("DROP %s IF EXISTS %s", strings.ToUpper(object.Type), quoteIdentifier(object.Name))
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return errors.Wrap(err, "drop "+object.Type, slog.String("name", object.Name))
	}
	return nil
}

// ordered returns the objects in declaration order.
func ordered(objects schemaObjects) []schemaObject {
	result := make([]schemaObject, 0, len(objects))
	for _, object := range objects {
		result = append(result, object)
	}
	slices.SortFunc(result, func(a, b schemaObject) int {
		return cmp.Compare(a.rank, b.rank)
	})
	return result
}

// renameCreateTable replaces the table name following CREATE TABLE.
func renameCreateTable(createSQL, name, newName string) string {
	idx := strings.Index(strings.ToUpper(createSQL), "TABLE")
	if idx == -1 {
		return createSQL
	}
	head, tail := createSQL[:idx], createSQL[idx:]
	for _, candidate := range []string{quoteIdentifier(name), name} {
		if strings.Contains(tail, candidate) {
			return head + strings.Replace(tail, candidate, quoteIdentifier(newName), 1)
		}
	}
	return createSQL
}

// normalizeTableSQL undoes the quoting ALTER TABLE RENAME applies to the table name so that rebuilt tables compare
// equal to their definition.
func normalizeTableSQL(createSQL, name string) string {
	return strings.Replace(createSQL, "TABLE "+quoteIdentifier(name), "TABLE "+name, 1)
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
