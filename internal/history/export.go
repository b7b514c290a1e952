// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docconvert/pkg/types"
)

const exportLimit = 100000

// Export is the document written by Store.Export.
type Export struct {
	Summary Summary              `json:"summary" yaml:"summary"`
	Entries []types.HistoryEntry `json:"entries" yaml:"entries"`
}

// Export writes matching entries, plus the overall summary, to w as "yaml"
// or "json". opts.Limit of zero exports everything.
func (s *Store) Export(ctx context.Context, w io.Writer, format string, opts QueryOptions) error {
	if opts.Limit <= 0 {
		opts.Limit = exportLimit
	}
	entries, err := s.Recent(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	sum, err := s.Summarize(ctx)
	if err != nil {
		return err
	}
	doc := Export{Summary: sum, Entries: entries}
	if doc.Entries == nil {
		doc.Entries = []types.HistoryEntry{}
	}

	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(&doc); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}
