package types

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Detail  string `json:"detail"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// StatusBody acknowledges requests that have no resource to return.
type StatusBody struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
