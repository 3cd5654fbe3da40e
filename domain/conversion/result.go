package conversion

import "math"

// Status is a coarse job stage reported alongside progress
type Status string

const (
	StatusFetching   Status = "fetching"
	StatusExtracting Status = "extracting"
	StatusCleaning   Status = "cleaning"
)

// ProgressEvent reports fractional progress for a job
type ProgressEvent struct {
	JobID    string
	Fraction float64
}

// ClampFraction limits f to [0,1]
func ClampFraction(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// JobResult is the terminal outcome of a request, produced exactly once
type JobResult struct {
	JobID      string
	Success    bool
	OutputPath string
	Message    string // error detail when Success is false
	Warning    string // soft warning on success, e.g. an empty clip
}

// Succeeded builds a successful result
func Succeeded(jobID, outputPath string) JobResult {
	return JobResult{JobID: jobID, Success: true, OutputPath: outputPath}
}

// Failed builds a failed result carrying the error message
func Failed(jobID string, err error) JobResult {
	return JobResult{JobID: jobID, Message: err.Error()}
}
