package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVHeader is the column layout of WriteCSV.
var CSVHeader = []string{
	"Test_ID", "Timestamp", "BR_File", "App_Name", "Package_Name", "Issue_Number", "Model",
	"Status", "Duration_Seconds", "Total_Commands", "Model_Responses", "Compactions",
	"Bug_Reproduced", "Failure_Reason", "Log_File", "Remarks",
}

// WriteCSV writes recs with a header row.
func WriteCSV(w io.Writer, recs []*Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.ReportPath,
			r.AppName,
			r.PackageName,
			r.IssueNumber,
			r.Model,
			r.Status,
			fmt.Sprintf("%.2f", r.Duration.Seconds()),
			strconv.Itoa(r.CommandCount),
			strconv.Itoa(r.ModelCalls),
			strconv.Itoa(r.Compactions),
			strconv.FormatBool(r.Reproduced),
			r.FailureReason,
			r.CheckpointPath,
			r.Remarks,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
