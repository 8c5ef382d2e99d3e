// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunState is a state of the run orchestrator.
type RunState string

const (
	StateIdle          RunState = "idle"
	StateFetching      RunState = "fetching"
	StateDeduplicating RunState = "deduplicating"
	StateScoring       RunState = "scoring"
	StateAnalyzing     RunState = "analyzing"
	StateRecording     RunState = "recording"
	StateDone          RunState = "done"
	StateFailed        RunState = "failed"
)

// RunCounts summarizes how many papers reached each stage of a run.
type RunCounts struct {
	Fetched     int `json:"fetched" yaml:"fetched"`
	Unique      int `json:"unique" yaml:"unique"`
	AlreadySeen int `json:"already_seen" yaml:"already_seen"`
	Duplicates  int `json:"duplicates" yaml:"duplicates"`
	Scored      int `json:"scored" yaml:"scored"`
	Unscored    int `json:"unscored" yaml:"unscored"`
	Passed      int `json:"passed" yaml:"passed"`
	Analyzed    int `json:"analyzed" yaml:"analyzed"`
	Partial     int `json:"partial" yaml:"partial"`
	Failed      int `json:"failed" yaml:"failed"`
	Recorded    int `json:"recorded" yaml:"recorded"`
}

// RunRecord is the persisted log entry of one pipeline run.
type RunRecord struct {
	ID         int64     `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	State      RunState  `json:"state" yaml:"state"`
	Counts     RunCounts `json:"counts" yaml:"counts"`
}

// KeywordAlias maps a raw keyword to its canonical form.
type KeywordAlias struct {
	Raw        string  `json:"raw" yaml:"raw"`
	Canonical  string  `json:"canonical" yaml:"canonical"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}
