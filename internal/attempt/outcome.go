package attempt

import (
	"time"

	"github.com/codefionn/reproschnell/internal/bugreport"
	"github.com/codefionn/reproschnell/internal/results"
)

// Status is the terminal state of an attempt.
type Status string

const (
	// StatusSuccess means the model reported the bug as reproduced.
	StatusSuccess Status = "success"
	// StatusCompleted means the attempt ended normally without a reproduction.
	StatusCompleted Status = "completed"

	StatusStuckInLoop   Status = "stuck_in_loop"
	StatusProviderError Status = "provider_error"
	StatusTimeout       Status = "timeout"
	StatusError         Status = "error"
)

// Failure reasons recorded on completed attempts.
const (
	ReasonNotReproduced  = "Bug not reproduced by the model"
	ReasonNoMoreCommands = "Model returned no further commands"
)

// Outcome summarizes one attempt.
type Outcome struct {
	ID        string
	StartedAt time.Time
	Report    *bugreport.Report
	Model     string
	Status    Status
	Duration  time.Duration
	// CommandCount is the number of commands handed to the executor.
	CommandCount int
	// ModelCalls counts model responses in the main loop, compaction calls excluded.
	ModelCalls     int
	Compactions    int
	Reproduced     bool
	FailureReason  string
	CheckpointPath string
	Remarks        string
}

// Record converts o into a results row.
func (o *Outcome) Record() *results.Record {
	rec := &results.Record{
		ID:             o.ID,
		StartedAt:      o.StartedAt,
		Model:          o.Model,
		Status:         string(o.Status),
		Duration:       o.Duration,
		CommandCount:   o.CommandCount,
		ModelCalls:     o.ModelCalls,
		Compactions:    o.Compactions,
		Reproduced:     o.Reproduced,
		FailureReason:  o.FailureReason,
		CheckpointPath: o.CheckpointPath,
		Remarks:        o.Remarks,
	}
	if o.Report != nil {
		rec.ReportPath = o.Report.Path
		rec.AppName = o.Report.Metadata.AppName
		rec.PackageName = o.Report.Metadata.PackageName
		rec.IssueNumber = o.Report.Metadata.IssueNumber
	}
	return rec
}
