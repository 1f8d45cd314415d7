package utils

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/maian3333/ridehub-ms-booking/internal/utils/response"
)

func ParseAndValidate(r *http.Request, w http.ResponseWriter, dest any, validate *validator.Validate) bool {

	if err := DecodeJSONBody(r, dest); err != nil {
		slog.Warn("Invalid request", slog.String("error", err.Error()))
		response.WriteJson(w, http.StatusBadRequest, response.GeneralError(err))
		return false
	}

	if err := ValidateStruct(validate, dest); err != nil {
		slog.Warn("Validation failed", slog.String("error", err.Error()))
		response.WriteJson(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid input data")))
		return false
	}

	return true

}

// FlattenQuery collapses url.Values into the single-valued map the gateway
// codecs work with. Repeated parameters keep their first value.
func FlattenQuery(values url.Values) map[string]string {
	params := make(map[string]string, len(values))

	for name, vals := range values {
		if len(vals) > 0 {
			params[name] = vals[0]
		}
	}

	return params
}
