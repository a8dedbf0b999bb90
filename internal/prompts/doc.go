// Package prompts contains the prompt templates Helio sends to models.
//
// Prompt text is Go code rather than config files because it is program
// logic: templates are assembled from the run's options and can be
// validated by tests. Each prompt category gets its own file with an
// exported function that accepts the dynamic parts and returns the
// fully interpolated prompt string.
package prompts
