package pipeline

// Phase identifies a coordinator stage for progress reporting.
type Phase string

const (
	PhaseFetching   Phase = "fetching"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseEnriching  Phase = "enriching"
	PhaseRefining   Phase = "refining"
	PhaseValidating Phase = "validating"
	PhaseSaving     Phase = "saving"
	PhaseDone       Phase = "done"
)

// Event is one progress update emitted while a scan runs.
type Event struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	// Percent is the overall scan completion, monotonically non-decreasing
	// across events of a single run.
	Percent int `json:"percent"`
}

// ProgressFunc receives scan progress events. Callers that do not care pass
// nil.
type ProgressFunc func(Event)

// progressEmitter clamps percentages so consumers never see progress move
// backwards, whatever order the tiers report in.
type progressEmitter struct {
	fn   ProgressFunc
	last int
}

func (p *progressEmitter) emit(e Event) {
	if p.fn == nil {
		return
	}
	if e.Percent < p.last {
		e.Percent = p.last
	}
	p.last = e.Percent
	p.fn(e)
}
