package config

import (
	"fmt"

	"github.com/formulab/regula/pkg/regula/ingest"
	"github.com/formulab/regula/pkg/regula/lexicon"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	SynonymsPath  string
	KnowledgePath string
	MappingPath   string
}

// Components holds all loaded configuration components
type Components struct {
	Lexicon   *lexicon.Lexicon
	Knowledge *KnowledgeBase
	Overrides ingest.Overrides
}

// Load reads all configuration files and returns initialized
// components. Unset paths yield empty components rather than errors.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	if l.SynonymsPath != "" {
		lex, err := lexicon.LoadFromYAML(l.SynonymsPath)
		if err != nil {
			return nil, fmt.Errorf("load synonyms: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.New()
	}

	if l.KnowledgePath != "" {
		kb, err := LoadKnowledgeBase(l.KnowledgePath)
		if err != nil {
			return nil, fmt.Errorf("load knowledge base: %w", err)
		}
		comp.Knowledge = kb
	} else {
		comp.Knowledge = NewKnowledgeBase(nil)
	}

	if l.MappingPath != "" {
		profile, err := LoadMappingProfile(l.MappingPath)
		if err != nil {
			return nil, fmt.Errorf("load mapping profile: %w", err)
		}
		comp.Overrides = profile.Columns
	}

	return comp, nil
}
