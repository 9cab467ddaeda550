package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	apperrors "lodgr/pkg/errors"
	"net/http"
)

// DecodeJSON decodes a single JSON object from the request body into dst.
// Unknown fields and trailing data are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperrors.InvalidInput("request body is required")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("request body is required")
		case errors.As(err, &maxBytesErr):
			return apperrors.TooLarge(maxBytesErr.Limit)
		case errors.As(err, &syntaxErr):
			return apperrors.InvalidInput(fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
		case errors.As(err, &typeErr):
			return apperrors.InvalidInput(fmt.Sprintf("invalid type for field %q", typeErr.Field))
		default:
			return apperrors.InvalidInput("invalid request body: " + err.Error())
		}
	}

	if dec.More() {
		return apperrors.InvalidInput("request body must contain a single JSON object")
	}
	return nil
}
