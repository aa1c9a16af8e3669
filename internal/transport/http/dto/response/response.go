package response

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func Success(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

func Error(code, message string) Response {
	return Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

func ErrorWithDetails(code, message string, details interface{}) Response {
	resp := Error(code, message)
	resp.Error.Details = details

	return resp
}
