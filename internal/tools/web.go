package tools

import "context"

func webFetchTool(deps Deps, opts Options) *Tool {
	return &Tool{
		Descriptor: Descriptor{
			Name:        WebFetch,
			Description: "Fetch a web page over HTTP GET and return its readable text. No JavaScript.",
			SideEffect:  RequiresApproval,
			Fields: []Field{
				{Name: "url", Type: String, Required: true, MaxLen: 2048, Description: "HTTP/HTTPS URL to fetch."},
				{Name: "max_chars", Type: Integer, Min: 1, Max: opts.WebFetchMaxChars, Default: opts.WebFetchMaxChars, Description: "Maximum characters of text to return."},
			},
		},
		Timeout: opts.WebFetchTimeout,
		Handler: func(ctx context.Context, args Args) (string, error) {
			if deps.Fetcher == nil {
				return "", unconfigured("web fetcher")
			}
			res, err := deps.Fetcher.Fetch(ctx, args.String("url"), args.Int("max_chars"))
			if err != nil {
				return "", err
			}
			return res.Text(), nil
		},
	}
}
