package batch

// Level classifies an operator message.
type Level string

const (
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
	Success Level = "success"
)

// Reporter receives progress and messages while a run executes.
type Reporter interface {
	// Progress reports the fraction of courses done, in [0, 1].
	Progress(fraction float64)
	Message(level Level, text string)
}

// Status is the result recorded for one forum, or for a course whose forums could not be listed.
type Status string

const (
	StatusUpdated     Status = "updated"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
	StatusFetchFailed Status = "fetch_failed"
)

// Outcome is one audit row.
type Outcome struct {
	CourseID string
	ForumID  string
	Title    string
	Payload  string
	Status   Status
	Err      string
}

// Recorder collects per-forum outcomes, e.g. for the CSV audit report.
type Recorder interface {
	Record(o Outcome)
}

// Tally counts one run. Courses is the number of parsed course ids.
type Tally struct {
	Courses    int
	Processed  int
	Successful int
	Failed     int
	Skipped    int
}
