// pkg/models/api.go
package models

// Pagination is attached to every list response.
type Pagination struct {
	Page       int   `json:"page" example:"1"`
	Limit      int   `json:"limit" example:"10"`
	Total      int64 `json:"total" example:"42"`
	TotalPages int   `json:"totalPages" example:"5"`
}

// Envelope is the uniform response body.
type Envelope struct {
	Success    bool        `json:"success" example:"true"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ValidationErrorResponse is returned with 400 when a request body fails validation.
type ValidationErrorResponse struct {
	Success bool                `json:"success" example:"false"`
	Message string              `json:"message" example:"Validation failed"`
	Errors  map[string][]string `json:"errors"`
}

// ErrorResponse is returned for every other failure (400/401/404/413/500).
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"Not Found"`
	Code    string `json:"code,omitempty" example:"NOT_FOUND"`
	Error   string `json:"error,omitempty"`
}
