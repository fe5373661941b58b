package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/gomarket?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func TestMySQLAdapter_Contract(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(ctx); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	// Cleanup old test rows
	db.ExecContext(ctx, `DELETE FROM kv_store WHERE k = 'test:cart:contract'`)

	runRepositoryContract(t, adapter, "test:cart:contract")
}

func TestMySQLAdapter_EnsureSchemaIdempotent(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	for i := 0; i < 2; i++ {
		if err := adapter.EnsureSchema(context.Background()); err != nil {
			t.Fatalf("EnsureSchema failed on run %d: %v", i+1, err)
		}
	}
}
