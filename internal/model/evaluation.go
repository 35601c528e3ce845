package model

import "time"

// Evaluation is one evaluator's scoring of one template.  At most one row
// exists per (TemplateID, EvaluatorID); the schema enforces it.
type Evaluation struct {
    ID            uint64    `json:"id"`
    TemplateID    uint64    `json:"template_id"`
    EvaluatorID   uint64    `json:"evaluator_id"`
    CodeQuality   uint8     `json:"code_quality"`
    Design        uint8     `json:"design"`
    Functionality uint8     `json:"functionality"`
    Documentation uint8     `json:"documentation"`
    Performance   uint8     `json:"performance"`
    Overall       uint8     `json:"overall"`
    Feedback      *string   `json:"feedback,omitempty"`
    CreatedAt     time.Time `json:"created_at"`
    UpdatedAt     time.Time `json:"updated_at"`
}

func (e Evaluation) RecordID() uint64 { return e.ID }

// EvaluationSummary averages every sub-score across a template's evaluations.
type EvaluationSummary struct {
    TemplateID    uint64  `json:"template_id"`
    Count         int     `json:"count"`
    CodeQuality   float64 `json:"code_quality"`
    Design        float64 `json:"design"`
    Functionality float64 `json:"functionality"`
    Documentation float64 `json:"documentation"`
    Performance   float64 `json:"performance"`
    Overall       float64 `json:"overall"`
}
