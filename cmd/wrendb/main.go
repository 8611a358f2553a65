// Command wrendb exercises the storage stack end to end: it builds a table,
// inserts a few rows, runs a scan pipeline and optionally archives the table
// to a zstd snapshot.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/haintp/wrendb"
	"github.com/haintp/wrendb/internal/config"
	"github.com/haintp/wrendb/internal/executor"
	"github.com/haintp/wrendb/internal/record"
	"github.com/haintp/wrendb/internal/snapshot"
	"github.com/haintp/wrendb/internal/storage"
)

func main() {
	var (
		cfgPath  string
		snapPath string
		verbose  bool
	)
	flag.StringVar(&cfgPath, "config", "", "path to wrendb yaml config")
	flag.StringVar(&snapPath, "snapshot", "", "write a table snapshot to this path")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	if verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	db, err := wrendb.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	schema := &record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt64},
		{Name: "name", Type: record.ColChar, Len: 16},
		{Name: "score", Type: record.ColFloat64, Nullable: true},
	}}

	tab, err := db.CreateTable("demo.tbl", schema, storage.NAryModel)
	if err != nil {
		log.Fatalf("create table: %v", err)
	}

	rows := [][]any{
		{int64(1), "ada", 92.5},
		{int64(2), "brian", 67.0},
		{int64(3), "cora", nil},
		{int64(4), "dennis", 88.25},
	}
	for _, row := range rows {
		rec, err := record.Encode(schema, row)
		if err != nil {
			log.Fatalf("encode row: %v", err)
		}
		if _, err := tab.InsertRecord(rec); err != nil {
			log.Fatalf("insert: %v", err)
		}
	}

	// id, name of everyone with a score above 80, first two only.
	proj := &record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt64},
		{Name: "name", Type: record.ColChar, Len: 16},
	}}
	pipeline := executor.NewProjection(
		executor.NewLimit(
			executor.NewFilter(
				executor.NewSeqScan(tab),
				func(r *record.Record) (bool, error) {
					v, err := r.ValueByName("score")
					if err != nil {
						return false, err
					}
					score, ok := v.(float64)
					return ok && score > 80, nil
				},
			),
			2,
		),
		proj,
	)

	recs, err := executor.Collect(pipeline)
	if err != nil {
		log.Fatalf("scan: %v", err)
	}
	for _, rec := range recs {
		fmt.Println(rec.Values())
	}

	if snapPath != "" {
		f, err := os.Create(snapPath)
		if err != nil {
			log.Fatalf("create snapshot file: %v", err)
		}
		if err := snapshot.Write(f, tab); err != nil {
			log.Fatalf("write snapshot: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("close snapshot file: %v", err)
		}
		fmt.Printf("snapshot written to %s\n", snapPath)
	}
}
