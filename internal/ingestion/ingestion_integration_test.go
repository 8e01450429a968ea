//go:build integration
// +build integration

package ingestion

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/guttosm/escrowd/internal/ledger"
	"github.com/guttosm/escrowd/internal/storage/postgres"
)

// startPostgres spins up a Postgres container and returns a DSN and terminate func.
func startPostgres(t *testing.T) (dsn string, terminate func()) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "escrowd",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=escrowd sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", "postgres", "postgres", host, port.Port(), "escrowd")
	terminate = func() { _ = container.Terminate(context.Background()) }
	return dsn, terminate
}

func openDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return db
}

func writeSeedFile(t *testing.T, dir, name string, rows int) {
	t.Helper()
	var b strings.Builder
	b.WriteString(validHeader)
	for i := 0; i < rows; i++ {
		// comma decimals exercise the separator normalisation
		fmt.Fprintf(&b, "%s-%03d;%d,5;%d\n", name, i, 100+i, i)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".csv"), []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
}

func TestIngestion_EndToEnd_ImportDirectory(t *testing.T) {
	dsn, terminate := startPostgres(t)
	defer terminate()
	db := openDB(t, dsn)
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	dir := t.TempDir()
	writeSeedFile(t, dir, "desk-a", 20)
	writeSeedFile(t, dir, "desk-b", 15)

	l := ledger.New(postgres.NewManager(db))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sum, err := ImportDirectory(ctx, dir, l, 2)
	if err != nil {
		t.Fatalf("ImportDirectory: %v", err)
	}
	if sum.Created != 35 || sum.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	var cnt int
	if err := db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&cnt); err != nil {
		t.Fatalf("count accounts: %v", err)
	}
	if cnt != 35 {
		t.Fatalf("expected 35 accounts, got %d", cnt)
	}

	var stb string
	if err := db.QueryRow("SELECT stb::text FROM accounts WHERE id = $1", "desk-a-003").Scan(&stb); err != nil {
		t.Fatalf("read balance: %v", err)
	}
	if stb != "103.50000000" {
		t.Fatalf("unexpected stb balance %q", stb)
	}

	// second run is a no-op
	sum, err = ImportDirectory(ctx, dir, l, 2)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if sum.Created != 0 || sum.Skipped != 35 {
		t.Fatalf("unexpected rerun summary: %+v", sum)
	}
}
