package core

// Decision is a validation gate's routing decision.
type Decision string

const (
	// DecisionPass routes the run forward to the next stage.
	DecisionPass Decision = "pass"
	// DecisionRetry routes the run back to the gate's retry target.
	DecisionRetry Decision = "retry"
	// DecisionFail aborts the run immediately, regardless of budget.
	DecisionFail Decision = "fail"
)

// Verdict is the result of evaluating a validation gate.
type Verdict struct {
	Decision Decision
	// Reason explains a retry or fail decision. Empty on pass.
	Reason string
}

// Pass returns a passing verdict.
func Pass() Verdict {
	return Verdict{Decision: DecisionPass}
}

// Retry returns a retrying verdict with the given reason.
func Retry(reason string) Verdict {
	return Verdict{Decision: DecisionRetry, Reason: reason}
}

// Fail returns a failing verdict with the given reason.
func Fail(reason string) Verdict {
	return Verdict{Decision: DecisionFail, Reason: reason}
}
