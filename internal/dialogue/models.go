package dialogue

// MaxRetries is the per-line attempt budget. A line whose retry_count has
// reached this value is permanently excluded from synthesis eligibility.
const MaxRetries = 5

// classifyBatchLimit caps how many eligible lines a single classification
// returns. Bounding the batch keeps per-invocation external-service load and
// a failed run's blast radius small.
const classifyBatchLimit = 3

// Stage is the derived pipeline phase. It is computed from the store's
// current contents on every classification and never cached.
type Stage int

const (
	// StageEmpty means no lines exist; intake should run.
	StageEmpty Stage = iota
	// StagePending means at least one eligible line awaits synthesis.
	StagePending
	// StageReady means lines exist but none are eligible: every line is
	// either processed or has exhausted its retry budget.
	StageReady
)

func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StagePending:
		return "pending"
	case StageReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Line is a dialogue line persisted in SQLite.
type Line struct {
	ID             int64
	Sentence       string
	Character      string
	Image          string
	ImageSearch    string
	AudioProcessed bool
	RetryCount     int
}

// Eligible reports whether the line is still a synthesis candidate.
func (l Line) Eligible() bool {
	return !l.AudioProcessed && l.RetryCount < MaxRetries
}

// Exhausted reports whether the line drained its retry budget unprocessed.
func (l Line) Exhausted() bool {
	return !l.AudioProcessed && l.RetryCount >= MaxRetries
}

// LineInput describes a line to insert. Zero values for AudioProcessed and
// RetryCount are the defaults unless explicitly supplied by the caller.
type LineInput struct {
	Sentence       string
	Character      string
	Image          string
	ImageSearch    string
	AudioProcessed bool
	RetryCount     int
}

// Snapshot is the result of one classification pass.
type Snapshot struct {
	Stage Stage
	// Eligible holds up to three eligible lines, oldest identity first.
	// Populated only for StagePending.
	Eligible []Line
}

// Summary aggregates line counts for diagnostics and CLI output.
type Summary struct {
	Total     int
	Processed int
	Eligible  int
	Exhausted int
}
