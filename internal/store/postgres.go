package store

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/jackc/pgx/v5"
    _ "github.com/jackc/pgx/v5/stdlib"

    "github.com/yourorg/listing-relay/listing"
)

// Store writes listing rows straight into Postgres. It is the alternative to
// the PostgREST sink when the relay can reach the database directly.
type Store struct {
    DB    *sql.DB
    table string
}

func Open(dsn, table string) (*Store, error) {
    if table == "" { return nil, errors.New("empty table name") }
    db, err := sql.Open("pgx", dsn)
    if err != nil { return nil, err }
    db.SetMaxOpenConns(4)
    db.SetMaxIdleConns(2)
    db.SetConnMaxLifetime(30 * time.Minute)
    return &Store{DB: db, table: table}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) quotedTable() string {
    return pgx.Identifier(strings.Split(s.table, ".")).Sanitize()
}

// Migrate creates the listing table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
    stmts := []string{
        CreateTableSQL(s.quotedTable()),
        fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (zpid);`,
            pgx.Identifier{indexName(s.table, "zpid")}.Sanitize(), s.quotedTable()),
    }
    for _, q := range stmts {
        if _, err := s.DB.ExecContext(ctx, q); err != nil { return err }
    }
    return nil
}

func CreateTableSQL(quotedTable string) string {
    var b strings.Builder
    b.WriteString("CREATE TABLE IF NOT EXISTS ")
    b.WriteString(quotedTable)
    b.WriteString(" (\n    id BIGSERIAL PRIMARY KEY")
    for _, c := range listing.Columns {
        b.WriteString(",\n    ")
        b.WriteString(pgx.Identifier{c.Name}.Sanitize())
        b.WriteString(" ")
        b.WriteString(sqlType(c))
    }
    b.WriteString(",\n    inserted_at TIMESTAMPTZ NOT NULL DEFAULT now()\n);")
    return b.String()
}

func InsertSQL(quotedTable string) string {
    names := listing.ColumnNames()
    cols := make([]string, len(names))
    params := make([]string, len(names))
    for i, n := range names {
        cols[i] = pgx.Identifier{n}.Sanitize()
        params[i] = fmt.Sprintf("$%d", i+1)
    }
    return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quotedTable, strings.Join(cols, ", "), strings.Join(params, ", "))
}

// WriteRows inserts the batch in one transaction: every row lands or none do.
func (s *Store) WriteRows(ctx context.Context, rows []listing.Row) (err error) {
    if s.DB == nil { return errors.New("nil db") }
    if len(rows) == 0 { return nil }
    tx, err := s.DB.BeginTx(ctx, nil)
    if err != nil { return err }
    defer func() { if err != nil { _ = tx.Rollback() } }()

    stmt, err := tx.PrepareContext(ctx, InsertSQL(s.quotedTable()))
    if err != nil { return fmt.Errorf("prepare insert: %w", err) }
    defer stmt.Close()

    for i, r := range rows {
        args, aerr := Args(r)
        if aerr != nil { err = fmt.Errorf("row %d: %w", i, aerr); return err }
        if _, err = stmt.ExecContext(ctx, args...); err != nil {
            return fmt.Errorf("insert row %d: %w", i, err)
        }
    }
    if err = tx.Commit(); err != nil { return fmt.Errorf("commit: %w", err) }
    return nil
}

func indexName(table, column string) string {
    t := strings.ReplaceAll(table, ".", "_")
    return "idx_" + t + "_" + column
}
