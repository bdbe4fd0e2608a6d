package crawl

// OutcomeKind enumerates how a domain crawl resolved its strategy choice.
type OutcomeKind int

const (
	// OutcomeFailed means the domain yielded nothing; Reason says why.
	OutcomeFailed OutcomeKind = iota
	// OutcomeATS means a platform adapter supplied the postings.
	OutcomeATS
	// OutcomeStructured means embedded structured data supplied postings.
	OutcomeStructured
	// OutcomeGeneric means the link-mining fallback supplied postings.
	OutcomeGeneric
)

// Outcome is the explicit strategy resolution for one domain crawl, kept as a
// tagged variant so the state machine stays testable in isolation.
type Outcome struct {
	Kind   OutcomeKind
	ATS    string // platform kind when Kind == OutcomeATS
	Reason string // failure reason when Kind == OutcomeFailed
}

func failed(reason string) Outcome { return Outcome{Kind: OutcomeFailed, Reason: reason} }
func viaATS(kind string) Outcome   { return Outcome{Kind: OutcomeATS, ATS: kind} }

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeATS:
		return "ats:" + o.ATS
	case OutcomeStructured:
		return "structured"
	case OutcomeGeneric:
		return "generic"
	default:
		return "failed:" + o.Reason
	}
}
