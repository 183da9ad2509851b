package notify_test

import (
	"strings"
	"testing"

	"github.com/artur/clipforge/internal/database/models"
	"github.com/artur/clipforge/internal/notify"
)

func TestFormatJobMessage(t *testing.T) {
	tests := []struct {
		name string
		job  *models.Job
		want string
	}{
		{
			name: "completed job",
			job: &models.Job{
				ID:    "job-1",
				State: models.JobStateCompleted,
				Clips: []models.Clip{{Position: 1}, {Position: 2}, {Position: 3}},
			},
			want: "3 clips",
		},
		{
			name: "failed job",
			job: &models.Job{
				ID:           "job-2",
				State:        models.JobStateFailed,
				ErrorMessage: "fetch media: gone",
			},
			want: "fetch media: gone",
		},
		{
			name: "processing job produces nothing",
			job:  &models.Job{ID: "job-3", State: models.JobStateProcessing},
			want: "",
		},
		{
			name: "deleted job produces nothing",
			job:  &models.Job{ID: "job-4", State: models.JobStateDeleted},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := notify.FormatJobMessage(tt.job)
			if tt.want == "" {
				if got != "" {
					t.Errorf("Expected no message, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Expected message containing %q, got %q", tt.want, got)
			}
			if !strings.Contains(got, tt.job.ID) {
				t.Errorf("Expected message containing job ID, got %q", got)
			}
		})
	}
}
