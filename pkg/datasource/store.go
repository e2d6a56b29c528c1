package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	_ "modernc.org/sqlite"
)

// Persistable is implemented by records the Store can map to a table through struct tags:
// `column` names the column, `dbtype` gives its SQL type, `primary:"true"` marks key fields
// and `index:"true"` adds an index. Fields without a dbtype are not stored
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() map[string]any
	SetPrimaryKey(map[string]any) error
	BeforeSave() error
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store keeps imported source matches in SQLite. It never stores computed predictions
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (creating if needed) the SQLite database at path and ensures the match table exists.
// ":memory:" gives a private in-memory database
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer, and every pooled connection to :memory: would be a new database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.CreateTable(ctx, &podds.Match{}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create match table: %w", err)
	}
	logger.Debug("Database initialized successfully", path)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTable creates a table, and its indexes, for the given persistable type
func (s *Store) CreateTable(ctx context.Context, obj Persistable) error {
	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)
	logger.Debug("Creating table with SQL", createSQL)

	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	for _, query := range generateIndexSQL(obj, tableName) {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

// Save inserts the object, or updates it when a row with the same primary key exists
func (s *Store) Save(ctx context.Context, obj Persistable) error {
	return save(ctx, s.db, obj)
}

// SaveMatches stores matches in a single transaction, keeping their order for later loads.
// Re-importing a match updates it in place
func (s *Store) SaveMatches(ctx context.Context, matches []*podds.Match) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	saved := 0
	for _, m := range matches {
		if m == nil {
			continue
		}
		if err := save(ctx, tx, m); err != nil {
			return 0, fmt.Errorf("failed to save match %s: %w", m, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	logger.Info("Saved", saved, "matches to", s.path)
	return saved, nil
}

// Exists checks if the object exists in the database
func (s *Store) Exists(ctx context.Context, obj Persistable) (bool, error) {
	return exists(ctx, s.db, obj)
}

// Delete removes the object from the database
func (s *Store) Delete(ctx context.Context, obj Persistable) error {
	tableName := obj.GetTableName()
	whereClause, values := buildWhereClause(obj.GetPrimaryKey())
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", quote(tableName), whereClause)
	if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", tableName, err)
	}
	return nil
}

// FindByPrimaryKey fills obj from the row with the given key
func (s *Store) FindByPrimaryKey(ctx context.Context, obj Persistable, primaryKey map[string]any) error {
	tableName := obj.GetTableName()
	columns, destinations := getSelectData(obj)
	whereClause, values := buildWhereClause(primaryKey)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(columns, ", "), quote(tableName), whereClause)
	logger.Debug("FindByPrimaryKey SQL", query)

	if err := s.db.QueryRowContext(ctx, query, values...).Scan(destinations...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("record not found in %s", tableName)
		}
		return fmt.Errorf("failed to scan row from %s: %w", tableName, err)
	}
	return nil
}

// Matches returns every stored match in the order it was first imported
func (s *Store) Matches(ctx context.Context) ([]*podds.Match, error) {
	return s.MatchesWhere(ctx, "")
}

// MatchesWhere returns stored matches filtered by a WHERE clause, in import order.
// An empty clause returns everything
func (s *Store) MatchesWhere(ctx context.Context, whereClause string, args ...any) ([]*podds.Match, error) {
	rows, err := s.findWhere(ctx, &podds.Match{}, whereClause, args...)
	if err != nil {
		return nil, err
	}
	matches := make([]*podds.Match, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, r.(*podds.Match))
	}
	return matches, nil
}

// Count returns the number of stored matches
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quote((&podds.Match{}).GetTableName()))
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}

// Divisions lists the distinct divisions stored
func (s *Store) Divisions(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT \"div\" FROM %s", quote((&podds.Match{}).GetTableName()))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query divisions: %w", err)
	}
	defer rows.Close()

	var divs []string
	for rows.Next() {
		var d sql.NullString
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan division: %w", err)
		}
		if d.Valid && d.String != "" {
			divs = append(divs, d.String)
		}
	}
	sort.Strings(divs)
	return divs, rows.Err()
}

// LoadDataset builds an immutable dataset from the stored matches
func (s *Store) LoadDataset(ctx context.Context) (*podds.Dataset, error) {
	matches, err := s.Matches(ctx)
	if err != nil {
		return nil, err
	}
	d, err := podds.NewDataset(matches)
	if err != nil {
		return nil, fmt.Errorf("failed to build dataset from %s: %w", s.path, err)
	}
	return d, nil
}

func (s *Store) findWhere(ctx context.Context, obj Persistable, whereClause string, args ...any) ([]any, error) {
	tableName := obj.GetTableName()
	columns, _ := getSelectData(obj)

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), quote(tableName))
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	query += " ORDER BY rowid"
	logger.Debug("FindWhere SQL", query)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}

	var results []any
	for rows.Next() {
		newObj := reflect.New(objType).Interface()
		_, destinations := getSelectData(newObj)
		if err := rows.Scan(destinations...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		results = append(results, newObj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

func save(ctx context.Context, db execer, obj Persistable) error {
	if err := obj.BeforeSave(); err != nil {
		return fmt.Errorf("before save hook failed: %w", err)
	}

	found, err := exists(ctx, db, obj)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}

	tableName := obj.GetTableName()
	var query string
	var values []any
	if found {
		setPairs, setValues := getUpdateData(obj)
		whereClause, whereValues := buildWhereClause(obj.GetPrimaryKey())
		query = fmt.Sprintf("UPDATE %s SET %s WHERE %s", quote(tableName), strings.Join(setPairs, ", "), whereClause)
		values = append(setValues, whereValues...)
	} else {
		columns, placeholders, insertValues := getInsertData(obj)
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(tableName), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		values = insertValues
	}

	if _, err := db.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to save into %s: %w", tableName, err)
	}
	return nil
}

func exists(ctx context.Context, db execer, obj Persistable) (bool, error) {
	tableName := obj.GetTableName()
	whereClause, values := buildWhereClause(obj.GetPrimaryKey())
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", quote(tableName), whereClause)

	var count int
	if err := db.QueryRowContext(ctx, query, values...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}
	return count > 0, nil
}

// persistedField is a struct field that maps to a column
type persistedField struct {
	index   int
	column  string
	dbtype  string
	primary bool
	indexed bool
}

// persistedFields walks the struct tags of obj
func persistedFields(obj any) []persistedField {
	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}

	var fields []persistedField
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Tag.Get("persist") == "false" || field.Tag.Get("db") == "-" {
			continue
		}
		dbType := field.Tag.Get("dbtype")
		if dbType == "" {
			continue
		}
		columnName := field.Tag.Get("column")
		if columnName == "" {
			columnName = strings.ToLower(field.Name)
		}
		fields = append(fields, persistedField{
			index:   i,
			column:  columnName,
			dbtype:  dbType,
			primary: field.Tag.Get("primary") == "true",
			indexed: field.Tag.Get("index") == "true",
		})
	}
	return fields
}

// generateCreateTableSQL generates CREATE TABLE SQL from struct tags
func generateCreateTableSQL(obj any, tableName string) string {
	var columns, primaryKeys []string
	for _, f := range persistedFields(obj) {
		dbType := f.dbtype
		if f.primary {
			primaryKeys = append(primaryKeys, quote(f.column))
			dbType = strings.TrimSpace(strings.ReplaceAll(dbType, "PRIMARY KEY", ""))
		}
		columns = append(columns, fmt.Sprintf("%s %s", quote(f.column), dbType))
	}
	if len(primaryKeys) > 0 {
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(tableName), strings.Join(columns, ", "))
}

// generateIndexSQL generates index creation SQL for fields tagged index:"true"
func generateIndexSQL(obj any, tableName string) []string {
	var indexSQL []string
	for _, f := range persistedFields(obj) {
		if !f.indexed || f.primary {
			continue
		}
		indexName := fmt.Sprintf("idx_%s_%s", tableName, f.column)
		indexSQL = append(indexSQL, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
			quote(indexName), quote(tableName), quote(f.column)))
	}
	return indexSQL
}

// getInsertData extracts column names, placeholders, and values for INSERT
func getInsertData(obj any) ([]string, []string, []any) {
	v := reflect.Indirect(reflect.ValueOf(obj))
	var columns, placeholders []string
	var values []any
	for _, f := range persistedFields(obj) {
		columns = append(columns, quote(f.column))
		placeholders = append(placeholders, "?")
		values = append(values, v.Field(f.index).Interface())
	}
	return columns, placeholders, values
}

// getUpdateData extracts SET pairs and values for UPDATE, skipping key fields
func getUpdateData(obj any) ([]string, []any) {
	v := reflect.Indirect(reflect.ValueOf(obj))
	var setPairs []string
	var values []any
	for _, f := range persistedFields(obj) {
		if f.primary {
			continue
		}
		setPairs = append(setPairs, fmt.Sprintf("%s = ?", quote(f.column)))
		values = append(values, v.Field(f.index).Interface())
	}
	return setPairs, values
}

// getSelectData extracts column names and scan destinations for SELECT
func getSelectData(obj any) ([]string, []any) {
	v := reflect.Indirect(reflect.ValueOf(obj))
	var columns []string
	var destinations []any
	for _, f := range persistedFields(obj) {
		columns = append(columns, quote(f.column))
		destinations = append(destinations, v.Field(f.index).Addr().Interface())
	}
	return columns, destinations
}

// buildWhereClause builds a WHERE clause from a primary key map, columns in sorted order
func buildWhereClause(primaryKey map[string]any) (string, []any) {
	keys := make([]string, 0, len(primaryKey))
	for k := range primaryKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]string, 0, len(keys))
	values := make([]any, 0, len(keys))
	for _, k := range keys {
		conditions = append(conditions, fmt.Sprintf("%s = ?", quote(k)))
		values = append(values, primaryKey[k])
	}
	return strings.Join(conditions, " AND "), values
}

// quote makes identifiers such as the match table, a reserved word, safe
func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
