package sessions

import (
	"errors"
	"net/http"

	"github.com/Desarso/tripwise/common_tools"
	"github.com/Desarso/tripwise/models"
)

// ErrorStatus maps an error returned by ChatSession.Run to an HTTP status and
// the message shown to the caller.
func ErrorStatus(err error) (int, string) {
	var validationErr *common_tools.ValidationError
	var clientErr *models.ClientError
	var agentErr *AgentError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &clientErr):
		return http.StatusBadRequest, clientErr.Error()
	case errors.As(err, &agentErr):
		return http.StatusBadGateway, agentErr.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
