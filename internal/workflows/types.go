package workflows

type BackfillInput struct {
	Kinds         []string `json:"kinds"`
	BatchSize     int      `json:"batch_size"`
	MaxConcurrent int      `json:"max_concurrent"`
}

type KindProgress struct {
	Pending int `json:"pending"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
}

type BackfillProgress struct {
	Total    int                     `json:"total"`
	Done     int                     `json:"done"`
	Failed   int                     `json:"failed"`
	PerKind  map[string]KindProgress `json:"per_kind"`
	Failures map[string]string       `json:"failures,omitempty"`
}
