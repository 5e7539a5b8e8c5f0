package ingest

import (
	"fmt"
	"log"
	"strings"
	"time"
)

const promptWarnLength = 10000

const promptInstructions = `<instructions>
You are watching one camera feed. For each task above, compare the current
frame against the task's latest note.

Respond with two lists in the structured output schema:
- "task_updates": include an entry for a task only if the current frame
  contradicts or extends its latest note. If nothing changed for any task,
  return an empty list. Transitions to zero and from zero (for example a
  count dropping to 0, or the first occurrence after none) must always be
  reported. Set "task_done" to true when the task's objective is complete
  and observation should stop.
- "system_actions": include an entry only when a task explicitly asks for
  an action (such as sending a notification or operating a device) and the
  current frame satisfies its trigger. Each entry's "take_action" is a
  plain-language description of the single action to take.
</instructions>`

// BuildPrompt assembles the per-task context blocks plus the fixed
// instruction body. Oversized prompts warn but still go out.
func BuildPrompt(tasks []*Task) string {
	var b strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&b, "<task>\ntask_number: %d\ntask_desc: %s\n", t.Number(), t.Desc())
		if note, ok := t.LatestNote(); ok {
			ts := time.Unix(note.Timestamp, 0).Format("2006-01-02 15:04:05")
			fmt.Fprintf(&b, "latest_note: %s (at %s)\n", note.Content, ts)
		} else {
			b.WriteString("latest_note: none\n")
		}
		b.WriteString("</task>\n\n")
	}
	b.WriteString(promptInstructions)

	prompt := b.String()
	if len(prompt) > promptWarnLength {
		log.Printf("[ingestor] prompt is %d chars, above the %d advisory limit", len(prompt), promptWarnLength)
	}
	return prompt
}
