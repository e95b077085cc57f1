package entity

type EstimationRequest struct {
	Description     string  `json:"description"`
	MaxRuntimeHours float64 `json:"max_runtime_hours"`
	MaxBudget       float64 `json:"max_budget"`

	// Filled by the delivery layer, never by the client body.
	ClientID  string `json:"-"`
	UserAgent string `json:"-"`
}

type EstimationResult struct {
	EstimatedDurationHours float64 `json:"estimated_duration_hours"`
	CalculatedCost         float64 `json:"calculated_cost"`
	ModelUsed              bool    `json:"model_used"`
	ModelErrorMessage      string  `json:"model_error_message,omitempty"`

	Cached         bool `json:"cached"`
	ExceedsRuntime bool `json:"exceeds_runtime"` // advisory only, never clamps
	ExceedsBudget  bool `json:"exceeds_budget"`
}

// LabelScore is a single classifier output entry, e.g. {"positive", 0.91}.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type ClassifierStatus struct {
	Loaded    bool   `json:"loaded"`
	Active    bool   `json:"active"`
	LoadError string `json:"load_error,omitempty"`
}
