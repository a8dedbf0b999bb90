package tools

import (
	"context"
	"fmt"
)

func writeNoteTool(deps Deps) *Tool {
	return &Tool{
		Descriptor: Descriptor{
			Name:        WriteNote,
			Description: "Write a note to the memory directory with the given title and content.",
			SideEffect:  RequiresApproval,
			Fields: []Field{
				{Name: "title", Type: String, Required: true, MaxLen: 200, Description: "Short note title."},
				{Name: "content", Type: String, Required: true, Description: "Full note content."},
			},
		},
		Handler: func(_ context.Context, args Args) (string, error) {
			if deps.Notes == nil {
				return "", unconfigured("note writer")
			}
			path, err := deps.Notes.Write(args.String("title"), args.String("content"))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Note written to %s", path), nil
		},
	}
}
