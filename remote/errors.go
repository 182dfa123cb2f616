package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"connectme/models"
)

// StatusError - ответ хранилища с кодом вне 2xx.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Unwrap относит ошибку к RemoteRejected (4xx) или RemoteUnavailable (все остальное).
func (e *StatusError) Unwrap() error {
	if e.Status >= 400 && e.Status < 500 {
		return models.ErrRemoteRejected
	}
	return models.ErrRemoteUnavailable
}

func newStatusError(method, path string, resp *http.Response) error {
	e := &StatusError{Method: method, Path: path, Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && (body.Error != "" || body.Details != "") {
		e.Message = body.Error
		if body.Details != "" {
			e.Message += ": " + body.Details
		}
	} else {
		e.Message = http.StatusText(resp.StatusCode)
	}
	logger.Debugf("%v", e)
	return e
}
