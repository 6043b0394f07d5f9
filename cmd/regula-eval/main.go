package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/formulab/regula/pkg/regula"
	"github.com/formulab/regula/pkg/regula/config"
	"github.com/formulab/regula/pkg/regula/normalize"
	"github.com/formulab/regula/pkg/regula/store"
	"github.com/formulab/regula/pkg/regula/store/sqlite"
)

func main() {
	var (
		dbPath        = flag.String("db", "regula.db", "Path to the regulatory SQLite database")
		formulaPath   = flag.String("formula", "", "Formula YAML file (required)")
		productType   = flag.String("product-type", "", "leave-on or rinse-off; defaults to the formula file's product_type")
		synonymsPath  = flag.String("synonyms", "", "Optional synonym lexicon YAML; defaults to the database synonym table")
		knowledgePath = flag.String("knowledge", "", "Optional ingredient knowledge base YAML for group warnings")
	)
	flag.Parse()

	if *formulaPath == "" {
		log.Fatal("--formula required")
	}

	formula, err := config.LoadFormula(*formulaPath)
	if err != nil {
		log.Fatalf("load formula: %v", err)
	}

	pt := *productType
	if pt == "" {
		pt = formula.ProductType
	}

	ctx := context.Background()

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	loader := config.Loader{
		SynonymsPath:  *synonymsPath,
		KnowledgePath: *knowledgePath,
	}
	components, err := loader.Load()
	if err != nil {
		log.Fatalf("load configs: %v", err)
	}

	var synonyms normalize.SynonymSource = st
	if *synonymsPath != "" {
		synonyms = components.Lexicon
	}

	engine := regula.New(regula.Options{
		Store:     st,
		Synonyms:  synonyms,
		Knowledge: components.Knowledge,
	})
	defer engine.Close()

	ingredients := make([]regula.FormulaIngredient, len(formula.Ingredients))
	for i, ing := range formula.Ingredients {
		ingredients[i] = regula.FormulaIngredient{
			Name:    ing.Name,
			INCI:    ing.INCI,
			Percent: ing.Percent,
		}
	}

	result, err := engine.EvaluateFormula(ctx, ingredients, store.Applicability(pt))
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}

	if len(result.Findings) == 0 && len(result.GroupWarnings) == 0 {
		fmt.Println("no findings")
		return
	}

	for _, f := range result.Findings {
		fmt.Printf("BLOCK  %s\n", f.Reason)
	}
	for _, w := range result.GroupWarnings {
		fmt.Printf("WARN   category %s totals %.2f%%, strictest cap %.2f%%\n",
			w.Category, w.TotalPct, w.Limit)
	}

	if len(result.Findings) > 0 {
		os.Exit(1)
	}
}
