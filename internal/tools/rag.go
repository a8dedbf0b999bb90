package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/heliohq/helio/internal/retrieval"
)

// Guidance returned by rag_search when it cannot produce chunks. The
// three cases are kept apart so the model can tell the user which one
// happened.
const (
	ragNoScope     = "No documents are selected for this run. Ask the user to attach a document or select documents/folders before using rag_search."
	ragNoMatch     = "No documents matched the selected paths. Ask the user to check the selection."
	ragNoText      = "The selected documents (%s) contain no extractable text, for example scanned PDFs without a text layer. Tell the user the content could not be read."
	ragNoRelevance = "No relevant chunks were found for this query in the selected documents (%s). Try different wording, or tell the user the answer is not stated in the document(s)."
)

func ragSearchTool(deps Deps, opts Options) *Tool {
	return &Tool{
		Descriptor: Descriptor{
			Name:        RAGSearch,
			Description: "Search the documents selected for this run and return the most relevant text chunks, each labeled with its source.",
			SideEffect:  Safe,
			Fields: []Field{
				{Name: "query", Type: String, Required: true, Description: "What to look for in the documents."},
				{Name: "top_k", Type: Integer, Min: 1, Max: 50, Default: opts.TopK, Description: "Number of chunks to return."},
			},
		},
		Handler: func(ctx context.Context, args Args) (string, error) {
			if deps.Search == nil {
				return ragNoScope, nil
			}
			res, err := deps.Search.Query(ctx, args.String("query"), args.Int("top_k"))
			var scopeErr *retrieval.ScopeError
			switch {
			case errors.As(err, &scopeErr) && len(scopeErr.Sources) == 0:
				return ragNoMatch, nil
			case errors.As(err, &scopeErr):
				return fmt.Sprintf(ragNoText, strings.Join(scopeErr.Sources, ", ")), nil
			case err != nil:
				return "", err
			case len(res.Chunks) == 0:
				return fmt.Sprintf(ragNoRelevance, strings.Join(deps.Search.Sources(), ", ")), nil
			}
			return renderChunks(res), nil
		},
	}
}

func renderChunks(res retrieval.Result) string {
	var sb strings.Builder
	if res.Fallback {
		fmt.Fprintf(&sb, "No chunk matched the query terms directly; these are the first %d chunk(s) of the selected documents.\n\n", len(res.Chunks))
	}
	for i, c := range res.Chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] source: %s", i+1, c.Source)
		if c.Title != "" {
			fmt.Fprintf(&sb, " (%s)", c.Title)
		}
		fmt.Fprintf(&sb, ", chunk %d\n%s", c.Ordinal, c.Text)
	}
	return sb.String()
}
