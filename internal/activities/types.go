package activities

type ListPendingInput struct {
	Kind  string `json:"kind"`
	Limit int    `json:"limit"`
}

type ListPendingOutput struct {
	IDs []string `json:"ids"`
}

type EmbedEntityInput struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type EmbedEntityOutput struct {
	Status string `json:"status"`
}
