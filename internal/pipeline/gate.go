package pipeline

type GateID string

const (
	GateMeaning    GateID = "meaning"
	GatePolicy     GateID = "policy"
	GatePlagiarism GateID = "plagiarism"
)

// GateOrder is the strict execution order. Each gate may only start after
// every earlier gate has passed.
var GateOrder = []GateID{GateMeaning, GatePolicy, GatePlagiarism}

type GateStatus string

const (
	StatusNotRun  GateStatus = "not_run"
	StatusRunning GateStatus = "running"
	StatusPassed  GateStatus = "passed"
	StatusFailed  GateStatus = "failed"
)

type CategoryScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type PolicyDetails struct {
	Categories []CategoryScore `json:"categories"`
}

type PlagiarismMatch struct {
	ChapterID    string  `json:"chapter_id"`
	ChapterTitle string  `json:"chapter_title"`
	BookTitle    string  `json:"book_title"`
	Excerpt      string  `json:"excerpt,omitempty"`
	Similarity   float64 `json:"similarity"`
}

type PlagiarismDetails struct {
	Similarity     float64           `json:"similarity"`
	Classification string            `json:"classification"`
	Matches        []PlagiarismMatch `json:"matches,omitempty"`
}

// GateResult is the outcome of one gate. It is only valid for the exact text
// it was computed against; the session invalidates all three together on any
// text change.
type GateResult struct {
	Gate       GateID             `json:"gate"`
	Status     GateStatus         `json:"status"`
	Score      float64            `json:"score"`
	Message    string             `json:"message,omitempty"`
	Degraded   bool               `json:"degraded,omitempty"`
	Policy     *PolicyDetails     `json:"policy,omitempty"`
	Plagiarism *PlagiarismDetails `json:"plagiarism,omitempty"`
}

func (r GateResult) Passed() bool {
	return r.Status == StatusPassed
}

// ChainState holds the three gate slots. The zero-ish value from
// NewChainState has everything NotRun.
type ChainState struct {
	Meaning    GateResult `json:"meaning"`
	Policy     GateResult `json:"policy"`
	Plagiarism GateResult `json:"plagiarism"`
}

func NewChainState() ChainState {
	return ChainState{
		Meaning:    GateResult{Gate: GateMeaning, Status: StatusNotRun},
		Policy:     GateResult{Gate: GatePolicy, Status: StatusNotRun},
		Plagiarism: GateResult{Gate: GatePlagiarism, Status: StatusNotRun},
	}
}

func (s ChainState) Get(gate GateID) GateResult {
	switch gate {
	case GateMeaning:
		return s.Meaning
	case GatePolicy:
		return s.Policy
	case GatePlagiarism:
		return s.Plagiarism
	}
	return GateResult{}
}

func (s ChainState) AllPassed() bool {
	return s.Meaning.Passed() && s.Policy.Passed() && s.Plagiarism.Passed()
}

// Running reports whether any gate is currently in flight.
func (s ChainState) Running() (GateID, bool) {
	for _, gate := range GateOrder {
		if s.Get(gate).Status == StatusRunning {
			return gate, true
		}
	}
	return "", false
}

// NextGate returns the gate that should run next. Short-circuit falls out of
// the structure: once a gate is Failed (or still Running) no later gate is
// ever eligible.
func (s ChainState) NextGate() (GateID, bool) {
	for _, gate := range GateOrder {
		switch s.Get(gate).Status {
		case StatusPassed:
			continue
		case StatusNotRun:
			return gate, true
		default:
			return "", false
		}
	}
	return "", false
}

// Next is the pure transition function: it replaces the slot for the
// finished (or newly running) gate and leaves the others untouched.
func Next(state ChainState, result GateResult) ChainState {
	switch result.Gate {
	case GateMeaning:
		state.Meaning = result
	case GatePolicy:
		state.Policy = result
	case GatePlagiarism:
		state.Plagiarism = result
	}
	return state
}
