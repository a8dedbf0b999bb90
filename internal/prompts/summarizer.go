package prompts

import "fmt"

// SummarizerSystem is the system prompt for summarize_text.
const SummarizerSystem = "You are a professional summarizer. Summarize in at most the requested number of words. " +
	"Preserve key technical details and decisions. Output only the summary, no preamble or repetition."

// SummarizerUser frames the text to summarize with its word limit.
func SummarizerUser(text string, maxWords int) string {
	return fmt.Sprintf("Max words: %d\n\nTEXT:\n%s", maxWords, text)
}

// CritiqueInput is the text handed to the summarizer for the
// self-critique pass.
func CritiqueInput(request, answer string) string {
	return fmt.Sprintf("User request: %s\n\nAgent answer:\n%s", request, answer)
}
