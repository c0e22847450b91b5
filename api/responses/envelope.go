package responses

// Success wraps every 2xx body as {"data": ...}.
type Success struct {
	Data any `json:"data"`
}

// Failure wraps every error body as {"error": {...}}.
type Failure struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
