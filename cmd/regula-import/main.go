package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/formulab/regula/pkg/regula"
	"github.com/formulab/regula/pkg/regula/config"
	"github.com/formulab/regula/pkg/regula/ingest"
	"github.com/formulab/regula/pkg/regula/normalize"
	"github.com/formulab/regula/pkg/regula/store"
	"github.com/formulab/regula/pkg/regula/store/sqlite"
)

func main() {
	var (
		dbPath       = flag.String("db", "regula.db", "Path to the regulatory SQLite database")
		tier         = flag.String("tier", "", "Restriction tier for this file: prohibited, restricted-a or restricted-b (required)")
		source       = flag.String("source", "", "Source label recorded on each entry")
		refURL       = flag.String("ref-url", "", "Reference URL recorded on each entry")
		synonymsPath = flag.String("synonyms", "", "Optional synonym lexicon YAML; defaults to the database synonym table")
		mappingPath  = flag.String("mapping", "", "Optional mapping profile YAML with column overrides")
		dryRun       = flag.Bool("dry-run", false, "Run every stage except persistence")
		skipDupCheck = flag.Bool("skip-dup-check", false, "Skip the duplicate-check stage entirely")

		colIdentifier = flag.String("col-identifier", "", "Override: identifier column name")
		colFallback   = flag.String("col-fallback", "", "Override: fallback identifier column name")
		colApplies    = flag.String("col-applicability", "", "Override: applicability column name")
		colMaxPct     = flag.String("col-max-pct", "", "Override: maximum percentage column name")
		colConditions = flag.String("col-conditions", "", "Override: conditions column name")
	)
	flag.Parse()

	if *tier == "" {
		log.Fatal("--tier required")
	}
	if flag.NArg() != 1 {
		log.Fatal("usage: regula-import [flags] <file.csv>")
	}

	parsedTier, err := store.ParseTier(*tier)
	if err != nil {
		log.Fatalf("invalid tier: %v", err)
	}

	raw, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read source: %v", err)
	}

	ctx := context.Background()

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	loader := config.Loader{
		SynonymsPath: *synonymsPath,
		MappingPath:  *mappingPath,
	}
	components, err := loader.Load()
	if err != nil {
		log.Fatalf("load configs: %v", err)
	}

	// Flag overrides win over the mapping profile.
	overrides := components.Overrides
	applyFlag(&overrides.Identifier, *colIdentifier)
	applyFlag(&overrides.IdentifierFallback, *colFallback)
	applyFlag(&overrides.Applicability, *colApplies)
	applyFlag(&overrides.MaxPercentage, *colMaxPct)
	applyFlag(&overrides.Conditions, *colConditions)

	var synonyms normalize.SynonymSource = st
	if *synonymsPath != "" {
		synonyms = components.Lexicon
	}

	engine := regula.New(regula.Options{Store: st, Synonyms: synonyms})
	defer engine.Close()

	report, err := engine.Ingest(ctx, string(raw), ingest.Options{
		Tier:         parsedTier,
		Source:       *source,
		RefURL:       *refURL,
		DryRun:       *dryRun,
		SkipDupCheck: *skipDupCheck,
		Overrides:    overrides,
	})
	if report != nil {
		printReport(report)
	}
	if err != nil {
		log.Fatalf("ingestion failed: %v", err)
	}
	if !report.Success() {
		os.Exit(1)
	}
}

func applyFlag(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func printReport(r *ingest.Report) {
	fmt.Printf("rows:       %d\n", r.TotalRows)
	fmt.Printf("skipped:    %d\n", r.Skipped)
	if r.DryRun {
		fmt.Printf("would insert: %d (dry run)\n", r.WouldInsert)
		for _, p := range r.Preview {
			fmt.Printf("  %s\n", p)
		}
	} else {
		fmt.Printf("inserted:   %d\n", r.Inserted)
	}
	fmt.Printf("duplicates: %d\n", r.Duplicates)
	fmt.Printf("failed:     %d\n", r.Failed)

	for _, w := range r.Warnings {
		log.Printf("warning: %s", w)
	}
	for _, e := range r.Errors {
		log.Printf("error: %s", e)
	}
}
