package apperror

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Body is the error response shape shared by all services. Raw errors never
// leak past this point.
type Body struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// Render translates err into the structured error body. Unclassified errors
// become a bare 500.
func Render(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	details := ""

	if appErr, ok := As(err); ok {
		status = appErr.Kind.StatusCode()
		message = appErr.Message
		details = appErr.Details
	} else {
		log.Error().Err(err).Msg("Unclassified error at HTTP boundary")
	}

	body := Body{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		log.Error().Err(encErr).Msg("Failed to encode error body")
	}
}
