package actions

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
)

var taskCSVHeader = []string{"Task Description", "Assignee", "Deadline", "Priority"}

// TasksCSV renders tasks as CSV with a header row.
func TasksCSV(tasks []ai.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(taskCSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, t := range tasks {
		if err := w.Write([]string{t.TaskDescription, t.Assignee, t.Deadline, t.Priority}); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// CollectTasks flattens the tasks of task-detection results in order.
func CollectTasks(results []Result) []ai.Task {
	var tasks []ai.Task
	for _, r := range results {
		if r.Tasks != nil {
			tasks = append(tasks, r.Tasks.Tasks...)
		}
	}
	return tasks
}
