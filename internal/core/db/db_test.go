package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *Queries {
	t.Helper()
	ctx := context.Background()

	conn, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "ordergate.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := MigrateUp(ctx, conn); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	q, err := LoadQueries(conn)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}
	return q
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantSource string
		wantErr    bool
	}{
		{url: "sqlite://ordergate.db", wantDriver: DriverSQLite, wantSource: "ordergate.db?_foreign_keys=on&_busy_timeout=5000"},
		{url: "sqlite:///var/lib/og.db", wantDriver: DriverSQLite, wantSource: "/var/lib/og.db?_foreign_keys=on&_busy_timeout=5000"},
		{url: "postgres://u:p@localhost:5432/og?sslmode=disable", wantDriver: DriverPostgres, wantSource: "postgres://u:p@localhost:5432/og?sslmode=disable"},
		{url: "postgresql://localhost/og", wantDriver: DriverPostgres, wantSource: "postgresql://localhost/og"},
		{url: "mysql://localhost/og", wantErr: true},
		{url: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, source, err := parseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseURL() = %s, %s; want error", driver, source)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseURL() error = %v", err)
			}
			if driver != tt.wantDriver || source != tt.wantSource {
				t.Errorf("parseURL() = %s, %s; want %s, %s", driver, source, tt.wantDriver, tt.wantSource)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `-- header
CREATE TABLE a (id TEXT);
-- between
CREATE INDEX idx ON a (id);

`
	got := splitStatements(sql)
	if len(got) != 2 {
		t.Fatalf("splitStatements() = %q, want 2 statements", got)
	}
	if got[0] != "CREATE TABLE a (id TEXT)" || got[1] != "CREATE INDEX idx ON a (id)" {
		t.Errorf("splitStatements() = %q", got)
	}
}

func TestMigrate(t *testing.T) {
	q := openTestDB(t)
	ctx := context.Background()

	// Second run is a no-op.
	if err := MigrateUp(ctx, q.DB()); err != nil {
		t.Fatalf("MigrateUp() second run error = %v", err)
	}

	statuses, err := MigrateStatus(ctx, q.DB())
	if err != nil {
		t.Fatalf("MigrateStatus() error = %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("MigrateStatus() returned no migrations")
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil || s.Checksum == "" {
			t.Errorf("migration %s status = %+v, want applied", s.ID, s)
		}
	}

	if _, err := q.DB().ExecContext(ctx, "UPDATE migrations SET checksum = 'tampered'"); err != nil {
		t.Fatal(err)
	}
	if err := MigrateUp(ctx, q.DB()); err == nil {
		t.Error("MigrateUp() should reject a tampered checksum")
	}
}

func TestQueries(t *testing.T) {
	q := openTestDB(t)
	ctx := context.Background()

	if _, err := q.Exec(ctx, "insert-rule-set", "rs-1", "transporteurs", time.Now().UTC()); err != nil {
		t.Fatalf("Exec(insert-rule-set) error = %v", err)
	}

	var set struct {
		ID   string `db:"rule_set_id"`
		Name string `db:"name"`
	}
	if err := q.Get(ctx, "get-rule-set", &set, "rs-1"); err != nil {
		t.Fatalf("Get(get-rule-set) error = %v", err)
	}
	if set.Name != "transporteurs" {
		t.Errorf("name = %q, want transporteurs", set.Name)
	}

	if err := q.Get(ctx, "get-rule-set", &set, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Get(missing) error = %v, want sql.ErrNoRows", err)
	}
	if _, err := q.Exec(ctx, "no-such-query"); err == nil {
		t.Error("Exec(unknown) should fail")
	}
}

func TestQueries_InTxRollsBack(t *testing.T) {
	q := openTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := q.InTx(ctx, func(tx *Queries) error {
		if _, err := tx.Exec(ctx, "insert-rule-set", "rs-tx", "tx", time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}

	var sets []struct {
		ID   string `db:"rule_set_id"`
		Name string `db:"name"`
	}
	if err := q.Select(ctx, "list-rule-sets", &sets); err != nil {
		t.Fatalf("Select(list-rule-sets) error = %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("rule sets after rollback = %v, want none", sets)
	}

	err = q.InTx(ctx, func(tx *Queries) error {
		_, err := tx.Exec(ctx, "insert-rule-set", "rs-tx", "tx", time.Now().UTC())
		return err
	})
	if err != nil {
		t.Fatalf("InTx() commit error = %v", err)
	}
	var seq int
	if err := q.Get(ctx, "next-rule-seq", &seq, "rs-tx"); err != nil || seq != 1 {
		t.Errorf("next-rule-seq = %d, %v; want 1", seq, err)
	}
}
