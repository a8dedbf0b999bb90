package prompts

import "fmt"

// PlannerSystem returns the system prompt for the plan_tasks tool.
func PlannerSystem(maxSteps int) string {
	return fmt.Sprintf("You are a senior project planner. Create a numbered, concise, but actionable plan. "+
		"For each step include: short title, what will be done, and what tools might be needed (if any). "+
		"Use at most %d steps. Output only the plan, no preamble or repetition.", maxSteps)
}
