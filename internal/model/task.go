package model

// TaskStatus is the backend reported state of a task. The set of values is owned
// by the backend, so the value is treated as an opaque enum.
type TaskStatus string

// Statuses reported by the download backend.
const (
	TaskStatusPending       TaskStatus = "pending"
	TaskStatusParsing       TaskStatus = "parsing"
	TaskStatusDownloading   TaskStatus = "downloading"
	TaskStatusCompleted     TaskStatus = "completed"
	TaskStatusPartialFailed TaskStatus = "partial_failed"
	TaskStatusFailed        TaskStatus = "failed"
	TaskStatusCancelled     TaskStatus = "cancelled"
)

// Progress is the file level progress of a task.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Fraction returns the completed fraction in the [0, 1] range. The second
// return value is false when the fraction is unknown (no total or the
// backend reported more done files than the total).
func (p Progress) Fraction() (float64, bool) {
	if p.Total <= 0 || p.Current < 0 || p.Current > p.Total {
		return 0, false
	}

	return float64(p.Current) / float64(p.Total), true
}

// Task is a backend download/crawl job as reported by the backend. The client only
// holds read-only copies of it.
type Task struct {
	// ID is the only identity of the task.
	ID       string     `json:"id"`
	URL      string     `json:"url"`
	Status   TaskStatus `json:"status"`
	SavePath string     `json:"savePath"`
	Name     string     `json:"name"`
	// Error is empty when the task has no failure.
	Error    string   `json:"error"`
	Progress Progress `json:"progress"`
	// Timestamps are backend formatted and never parsed by the client.
	StartTime    string `json:"startTime"`
	CompleteTime string `json:"completeTime"`
	UpdatedAt    string `json:"updatedAt"`
	FailedCount  int    `json:"failedCount"`
	Retryable    bool   `json:"retryable"`
	RetryCount   int    `json:"retryCount"`
	MaxRetries   int    `json:"maxRetries"`
}

// Tasks is an ordered list of tasks.
type Tasks []Task

// IDs returns the task IDs keeping the order.
func (t Tasks) IDs() []string {
	ids := make([]string, 0, len(t))
	for _, task := range t {
		ids = append(ids, task.ID)
	}
	return ids
}

// ByID returns the task with the ID, if present.
func (t Tasks) ByID(id string) (Task, bool) {
	for _, task := range t {
		if task.ID == id {
			return task, true
		}
	}
	return Task{}, false
}
