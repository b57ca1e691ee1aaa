package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRankingWarm pre-populates ranking and tier-summary caches.
	TaskRankingWarm = "analytics:ranking_warm"
)

// RankingWarmPayload controls how much of the ranking the warm run covers.
type RankingWarmPayload struct {
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
}

// NewRankingWarmTask constructs an Asynq task for a ranking warm run.
func NewRankingWarmTask(payload RankingWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRankingWarm, data), nil
}
