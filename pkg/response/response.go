package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Meta       *Meta       `json:"meta,omitempty"` // Set on list endpoints
	Error      string      `json:"error,omitempty"`
	Field      string      `json:"field,omitempty"` // Offending input field on validation errors
}

// Meta describes the page returned by a list endpoint
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithPagination wraps one page of a list together with its position
func SuccessWithPagination(statusCode int, data interface{}, page, limit int, total int64) Response {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	resp := Success(statusCode, data)
	resp.Meta = &Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
	return resp
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// FieldError is an Error that names the rejected input field
func FieldError(statusCode int, field, err string) Response {
	resp := Error(statusCode, err)
	resp.Field = field
	return resp
}
