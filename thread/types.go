package thread

import (
	"time"
)

// Wire representations returned by the API boundary. They mirror the
// persistence models but carry resolved associations (scores per step,
// deserialized generation and attachment payloads, presigned URLs).
type (
	Thread struct {
		Id            string         `json:"id"`
		Name          string         `json:"name,omitempty"`
		Metadata      map[string]any `json:"metadata,omitempty"`
		Environment   string         `json:"environment,omitempty"`
		Tags          []string       `json:"tags,omitempty"`
		CreatedAt     time.Time      `json:"created_at"`
		ParticipantId *string        `json:"participant_id,omitempty"`
		Participant   *Participant   `json:"participant,omitempty"`
		Steps         []*Step        `json:"steps,omitempty"`
	}

	Step struct {
		Id          string         `json:"id"`
		ThreadId    string         `json:"thread_id"`
		ParentId    *string        `json:"parent_id,omitempty"`
		StartTime   *time.Time     `json:"start_time,omitempty"`
		EndTime     *time.Time     `json:"end_time,omitempty"`
		CreatedAt   time.Time      `json:"created_at"`
		Type        string         `json:"type,omitempty"`
		Error       string         `json:"error,omitempty"`
		Input       map[string]any `json:"input,omitempty"`
		Output      map[string]any `json:"output,omitempty"`
		Metadata    map[string]any `json:"metadata,omitempty"`
		Tags        []string       `json:"tags,omitempty"`
		Name        string         `json:"name,omitempty"`
		Scores      []*Score       `json:"scores,omitempty"`
		Generation  map[string]any `json:"generation,omitempty"`
		Attachments []*Attachment  `json:"attachments,omitempty"`
	}

	Participant struct {
		Id         string         `json:"id"`
		Identifier string         `json:"identifier"`
		Metadata   map[string]any `json:"metadata,omitempty"`
		CreatedAt  time.Time      `json:"created_at"`
	}

	Score struct {
		Id                      string   `json:"id"`
		Name                    string   `json:"name,omitempty"`
		Type                    string   `json:"type,omitempty"`
		Value                   float64  `json:"value"`
		Comment                 string   `json:"comment,omitempty"`
		Tags                    []string `json:"tags,omitempty"`
		StepId                  *string  `json:"step_id,omitempty"`
		GenerationId            *string  `json:"generation_id,omitempty"`
		DatasetExperimentItemId *string  `json:"dataset_experiment_item_id,omitempty"`
	}

	Attachment struct {
		Id        string         `json:"id,omitempty"`
		ThreadId  string         `json:"thread_id,omitempty"`
		StepId    string         `json:"step_id,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
		Mime      string         `json:"mime,omitempty"`
		Name      string         `json:"name,omitempty"`
		ObjectKey string         `json:"object_key,omitempty"`
		Url       string         `json:"url,omitempty"`
	}

	Edge struct {
		Node   *Thread `json:"node"`
		Cursor string  `json:"cursor"`
	}

	PageInfo struct {
		HasNextPage     bool    `json:"has_next_page"`
		HasPreviousPage bool    `json:"has_previous_page"`
		StartCursor     *string `json:"start_cursor,omitempty"`
		EndCursor       *string `json:"end_cursor,omitempty"`
	}

	Connection struct {
		Edges    []*Edge  `json:"edges"`
		PageInfo PageInfo `json:"page_info"`

		// TotalCount counts the edges of this page, not the full filtered
		// set.
		TotalCount int `json:"total_count"`
	}
)
