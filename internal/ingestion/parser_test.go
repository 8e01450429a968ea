package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/shopspring/decimal"
)

// fakeOpener records opened accounts and reports ErrAccountExists for repeats.
type fakeOpener struct {
	mu     sync.Mutex
	opened map[string]models.Balances
	err    error
}

func (f *fakeOpener) OpenAccount(_ context.Context, id string, b models.Balances) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.opened == nil {
		f.opened = map[string]models.Balances{}
	}
	if _, ok := f.opened[id]; ok {
		return nil, models.ErrAccountExists
	}
	f.opened[id] = b
	return &models.Account{ID: id, Balances: b}, nil
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return p
}

const validHeader = "account;stb;gnr\n"

func TestImportFile_TableDriven(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name        string
		content     string
		wantErr     string
		wantCreated int
		wantSkipped int
	}{
		{name: "ok single row", content: validHeader + "alice;100;0,5\n", wantCreated: 1},
		{name: "header case and spaces", content: "Account; STB; GNR\nalice;1;1\n", wantCreated: 1},
		{name: "comments and empty cells", content: validHeader + "# seed\nalice;;\nbob;1;\n", wantCreated: 2},
		{name: "duplicate skipped", content: validHeader + "alice;1;1\nalice;2;2\n", wantCreated: 1, wantSkipped: 1},
		{name: "bad header order", content: "stb;account;gnr\n", wantErr: "invalid header at col 1"},
		{name: "bad header length", content: "account;stb\n", wantErr: "invalid header length"},
		{name: "bad col count", content: validHeader + "alice;1\n", wantErr: "invalid column count on line 2"},
		{name: "empty account", content: validHeader + " ;1;1\n", wantErr: "empty account id"},
		{name: "invalid amount", content: validHeader + "alice;abc;1\n", wantErr: "invalid stb"},
		{name: "empty file", content: "", wantErr: "read header"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempFile(t, dir, "file.csv", tc.content)
			opener := &fakeOpener{}
			created, skipped, err := importFile(context.Background(), path, opener)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if created != tc.wantCreated || skipped != tc.wantSkipped {
				t.Fatalf("created/skipped: want %d/%d got %d/%d", tc.wantCreated, tc.wantSkipped, created, skipped)
			}
		})
	}
}

func TestImportFile_ParsesBalances(t *testing.T) {
	path := writeTempFile(t, t.TempDir(), "a.csv", validHeader+"alice;100,25;0.00000001\n")
	opener := &fakeOpener{}
	if _, _, err := importFile(context.Background(), path, opener); err != nil {
		t.Fatalf("import: %v", err)
	}
	want := models.NewBalances(decimal.RequireFromString("100.25"), decimal.RequireFromString("0.00000001"))
	if got := opener.opened["alice"]; !got.Equal(want) {
		t.Fatalf("balances: want %+v got %+v", want, got)
	}
}

func TestImportFile_OpenerError(t *testing.T) {
	path := writeTempFile(t, t.TempDir(), "a.csv", validHeader+"alice;-1;0\n")
	boom := errors.New("negative balance")
	_, _, err := importFile(context.Background(), path, &fakeOpener{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected opener error, got %v", err)
	}
}

func TestImportFile_ContextCanceled(t *testing.T) {
	var rows strings.Builder
	rows.WriteString(validHeader)
	for i := 0; i < 1000; i++ {
		rows.WriteString("acc-")
		rows.WriteString(strings.Repeat("x", i%7+1))
		rows.WriteString(";1;1\n")
	}
	path := writeTempFile(t, t.TempDir(), "big.csv", rows.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := importFile(ctx, path, &fakeOpener{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}
