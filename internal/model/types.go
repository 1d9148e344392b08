package model

import "time"

const (
	SchemaVersion = 1
	CodecVersion  = 1
)

// CurrentVersion stamps a record with the versions this build writes.
func CurrentVersion() VersionedRecord {
	return VersionedRecord{SchemaVersion: SchemaVersion, CodecVersion: CodecVersion}
}

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type RunStatus string

const (
	RunComplete        RunStatus = "complete"
	RunGenerationLimit RunStatus = "generation_limit"
)

// RunSummary describes one evolve-then-olympics experiment.
type RunSummary struct {
	VersionedRecord
	ID                string    `json:"id"`
	Status            RunStatus `json:"status"`
	Seed              int64     `json:"seed"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	Generations       int       `json:"generations"`
	FitnessPhaseStart int       `json:"fitness_phase_start"`
	ArchiveSize       int       `json:"archive_size"`
	NoveltyQualified  int       `json:"novelty_qualified"`
	FitnessQualified  int       `json:"fitness_qualified"`
	ReportPath        string    `json:"report_path,omitempty"`
	Config            string    `json:"config,omitempty"`
}

type GenerationDiagnostics struct {
	Generation      int     `json:"generation"`
	Phase           string  `json:"phase"`
	BestScore       float64 `json:"best_score"`
	MeanScore       float64 `json:"mean_score"`
	BestFood        int     `json:"best_food"`
	MeanFood        float64 `json:"mean_food"`
	MeanPoison      float64 `json:"mean_poison"`
	MeanActiveNodes float64 `json:"mean_active_nodes"`
	ArchiveSize     int     `json:"archive_size"`
	Qualified       int     `json:"qualified"`
	MutationRate    float64 `json:"mutation_rate"`
	Stagnant        bool    `json:"stagnant"`
}

type ScenarioScore struct {
	Scenario string `json:"scenario"`
	Food     int    `json:"food"`
}

// QualifiedController summarises a pool member; the genome itself is not kept.
type QualifiedController struct {
	VersionedRecord
	GenomeID    string          `json:"genome_id"`
	ParentID    string          `json:"parent_id,omitempty"`
	Generation  int             `json:"generation"`
	Regime      string          `json:"regime"`
	ActiveNodes int             `json:"active_nodes"`
	Fitness     float64         `json:"fitness"`
	Novelty     float64         `json:"novelty"`
	Scores      []ScenarioScore `json:"scores,omitempty"`
}

// EventResult is one controller's outcome in one olympic event.
type EventResult struct {
	VersionedRecord
	Event    string `json:"event"`
	GenomeID string `json:"genome_id"`
	Regime   string `json:"regime"`
	Food     int    `json:"food"`
	Poison   int    `json:"poison"`
}
