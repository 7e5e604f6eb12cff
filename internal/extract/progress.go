package extract

// Status is the lifecycle phase reported to progress pollers.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusSaving     Status = "saving"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Snapshot is one point-in-time progress report. Percent is 0-100.
type Snapshot struct {
	Status  Status `json:"status"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Tracker receives progress snapshots during an extraction run. Update must
// tolerate being called from the extraction goroutine at page granularity.
type Tracker interface {
	Update(s Snapshot)
}

// TrackerFunc adapts a function to the Tracker interface.
type TrackerFunc func(s Snapshot)

func (f TrackerFunc) Update(s Snapshot) { f(s) }

// NopTracker discards all updates.
var NopTracker Tracker = TrackerFunc(func(Snapshot) {})
