package expand

// Verdict is the three-way outcome of validating an oracle proposal. It is a
// value, not an error: Rejected prunes one branch while its siblings proceed,
// Fatal aborts the whole document. No fallback node is ever substituted.
type Verdict int

const (
	VerdictValid Verdict = iota
	VerdictRejected
	VerdictFatal
)

// Outcome pairs a verdict with the reason a proposal was rejected or the
// document aborted.
type Outcome struct {
	Verdict Verdict
	Reason  string
}

func Valid() Outcome                 { return Outcome{Verdict: VerdictValid} }
func Rejected(reason string) Outcome { return Outcome{Verdict: VerdictRejected, Reason: reason} }
func Fatal(reason string) Outcome    { return Outcome{Verdict: VerdictFatal, Reason: reason} }
