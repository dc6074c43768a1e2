package api

type PredictRequest struct {
	ImageB64 string `json:"image_b64"`
	Prompt   string `json:"prompt,omitempty"`
}

type PredictResponse struct {
	ID     string `json:"id"`
	Output string `json:"output"`
	Usage  *Usage `json:"usage,omitempty"`
}

type Usage struct {
	CompletionTokens int     `json:"completion_tokens"`
	DurationMS       int64   `json:"duration_ms"`
	TokensPerSecond  float64 `json:"tokens_per_second,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Model   string `json:"model"`
	Device  string `json:"device"`
	Workers int    `json:"workers"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Param   string `json:"param,omitempty"`
}
