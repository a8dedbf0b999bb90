package prompts

import (
	"fmt"
	"strings"
)

// SupervisorOptions are the run properties the supervisor prompt depends on.
type SupervisorOptions struct {
	ApprovalRequired bool
	Scoped           bool // a retrieval scope is attached to this run
	DocumentsOnly    bool
	Tools            []string // tools available this run, in display order
	Risky            []string // tools that need user confirmation
}

const supervisorTemplate = `You are a Hierarchical Supervisor Agent.

Your responsibilities:
- Understand the user's high-level goal.
- Decide which tools to use and in what order.
- Break work into clear subtasks. Use plan_tasks when helpful.
- Avoid unnecessary tool calls.
%s- Keep the user informed in natural language.
- At the end, summarize what you did and any remaining open questions.

You have access to the following tools: %s.

%s
Be concise, transparent, and safety-conscious. Prefer local processing and avoid unnecessary external requests.`

// Supervisor returns the system prompt for the orchestration loop.
func Supervisor(opts SupervisorOptions) string {
	risky := strings.Join(opts.Risky, ", ")

	var approval string
	if opts.ApprovalRequired {
		approval = fmt.Sprintf("- For any action that is potentially risky (%s):\n"+
			"  - FIRST explain what you plan to do, then call the tool.\n"+
			"  - The user is asked to confirm before it runs. If they deny it, do not retry the same action.\n", risky)
	} else {
		approval = fmt.Sprintf("- For potentially risky actions (%s): briefly explain what you will do, then proceed without asking for approval (the user has enabled auto-approve).\n", risky)
	}

	rag := "- Use rag_search only when the user has attached a document or selected documents/folders for this run; " +
		"the tool will tell you if no documents were selected. When available, use it for questions about those docs, " +
		"then summarize_text or reason over the returned chunks."
	if opts.Scoped {
		rag += "\n- When answering from rag_search results: base your answer ONLY on the provided chunks; " +
			"do not add information that is not in the chunks; if the answer is not in the chunks, say so " +
			`(e.g. "Not stated in the document(s)"). Do not hallucinate or invent content.`
		if opts.DocumentsOnly {
			rag += "\n- This run is documents-only (offline): do NOT use web_fetch or any external sources. " +
				"Use only rag_search and the returned chunks (and summarize_text). Answer strictly from the selected documents."
		}
	}

	return fmt.Sprintf(supervisorTemplate, approval, strings.Join(opts.Tools, ", "), rag)
}

// RAGHint is prepended to the model-visible user message when a
// retrieval scope is attached. The persisted message never carries it.
const RAGHint = "[RAG is enabled for this run. Use the rag_search tool to search the attached/selected documents when answering.]\n\n"
