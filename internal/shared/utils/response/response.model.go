package response

// Envelope is the JSON shape of every API response
type Envelope struct {
	Status  string      `json:"status"` // "success" or "error"
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}
