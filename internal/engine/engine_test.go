package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrissnell/tripcharts/internal/tabular"
	"go.uber.org/zap"
)

const januaryCSV = "VendorID,tpep_pickup_datetime,trip_distance,tip_amount\n" +
	"1,2023-01-01 00:32:10,0.97,0\n" +
	"2,2023-01-02 13:55:08,1.10,4\n"

// february lists the same columns in a different order
const februaryCSV = "tip_amount,VendorID,trip_distance,tpep_pickup_datetime\n" +
	"2.5,1,3.2,2023-02-04 23:01:00\n" +
	",2,,2023-02-05 08:10:00\n"

func csvFile(t *testing.T, name, body string) File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return File{Path: path, Format: tabular.FormatCSV}
}

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := NewSQLite("", zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, e Engine, table string) int {
	t.Helper()
	rows, err := e.QueryContext(context.Background(), "SELECT COUNT(*) FROM "+QuoteIdent(table))
	if err != nil {
		t.Fatalf("count query: %v", err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			t.Fatal(err)
		}
	}
	return n
}

func TestSQLiteRegisterUnion(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	files := []File{csvFile(t, "jan.csv", januaryCSV), csvFile(t, "feb.csv", februaryCSV)}
	if err := db.Register(ctx, "taxi_2023", files); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if n := countRows(t, db, "taxi_2023"); n != 4 {
		t.Errorf("row count = %d, expected 4", n)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(db.Dialect().TripQuery, QuoteIdent("taxi_2023")), 10)
	if err != nil {
		t.Fatalf("trip query: %v", err)
	}
	defer rows.Close()

	type row struct {
		dow, hour int
	}
	var got []row
	for rows.Next() {
		var (
			pickup    string
			dist, tip any
			r         row
		)
		if err := rows.Scan(&pickup, &dist, &tip, &r.dow, &r.hour); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, r)
	}

	// 2023-01-01 was a Sunday, 2023-02-04 a Saturday
	expected := []row{{0, 0}, {1, 13}, {6, 23}, {0, 8}}
	if len(got) != len(expected) {
		t.Fatalf("got %d rows, expected %d", len(got), len(expected))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("row %d = %+v, expected %+v", i, got[i], expected[i])
		}
	}
}

func TestSQLiteRegisterSchemaMismatchKeepsPreviousTable(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	if err := db.Register(ctx, "trips", []File{csvFile(t, "jan.csv", januaryCSV)}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	bad := csvFile(t, "bad.csv", "a,b\n1,2\n")
	err := db.Register(ctx, "trips", []File{csvFile(t, "jan.csv", januaryCSV), bad})
	if !errors.Is(err, tabular.ErrSchemaMismatch) {
		t.Fatalf("Register error = %v, expected ErrSchemaMismatch", err)
	}

	if n := countRows(t, db, "trips"); n != 2 {
		t.Errorf("row count after failed register = %d, expected the previous 2", n)
	}
}

func TestSQLiteRegisterRejects(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	if err := db.Register(ctx, "trips", nil); !errors.Is(err, ErrNoFiles) {
		t.Errorf("Register(nil) error = %v, expected ErrNoFiles", err)
	}

	pq := File{Path: "trips.parquet", Format: tabular.FormatParquet}
	if err := db.Register(ctx, "trips", []File{pq}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Register(parquet) error = %v, expected ErrUnsupportedFormat", err)
	}

	missing := File{Path: filepath.Join(t.TempDir(), "nope.csv"), Format: tabular.FormatCSV}
	if err := db.Register(ctx, "trips", []File{missing}); err == nil {
		t.Error("Register(missing file) succeeded, expected an error")
	}
}

func TestDuckDBRegisterStatement(t *testing.T) {
	tests := []struct {
		name    string
		files   []File
		want    string
		wantErr error
	}{
		{
			name:  "csv union",
			files: []File{{Path: "/tmp/a.csv", Format: tabular.FormatCSV}, {Path: "/tmp/o'b.csv.gz", Format: tabular.FormatCSV}},
			want:  `CREATE OR REPLACE TABLE "taxi_2023" AS SELECT * FROM read_csv_auto(['/tmp/a.csv', '/tmp/o''b.csv.gz'], header = true)`,
		},
		{
			name:  "parquet",
			files: []File{{Path: "/tmp/a.parquet", Format: tabular.FormatParquet}},
			want:  `CREATE OR REPLACE TABLE "taxi_2023" AS SELECT * FROM read_parquet(['/tmp/a.parquet'])`,
		},
		{
			name:    "mixed",
			files:   []File{{Path: "a.csv", Format: tabular.FormatCSV}, {Path: "b.parquet", Format: tabular.FormatParquet}},
			wantErr: ErrMixedFormats,
		},
		{
			name:    "empty",
			wantErr: ErrNoFiles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := duckdbRegisterStatement("taxi_2023", tt.files)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, expected %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("statement = %s, expected %s", got, tt.want)
			}
		})
	}
}

func TestDialectQueriesBindLimit(t *testing.T) {
	for _, d := range []Dialect{(&SQLite{}).Dialect(), (&DuckDB{}).Dialect()} {
		q := fmt.Sprintf(d.TripQuery, QuoteIdent("t"))
		if strings.Count(q, "?") != 1 {
			t.Errorf("%s query binds %d parameters, expected 1", d.Name, strings.Count(q, "?"))
		}
		if !strings.Contains(q, "%w") || !strings.Contains(q, "%H") {
			t.Errorf("%s query lost its strftime formats: %s", d.Name, q)
		}
		if !strings.Contains(q, "WHERE tpep_pickup_datetime IS NOT NULL") {
			t.Errorf("%s query does not drop trips without a pickup time: %s", d.Name, q)
		}
	}
}
