package models

type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Code    int    `json:"code"`
	Detail  string `json:"detail,omitempty"`
	Request string `json:"request_id,omitempty"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	LLMConfigured bool   `json:"llm_configured"`
	Provider      string `json:"provider"`
}
