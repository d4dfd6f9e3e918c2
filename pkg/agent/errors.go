package agent

import "fmt"

// LoopLimitError reports a turn that hit the model invocation ceiling
// without producing a final answer.
type LoopLimitError struct {
	Limit int
}

func (e *LoopLimitError) Error() string {
	return fmt.Sprintf("conversation exceeded %d model invocations in a single turn", e.Limit)
}
