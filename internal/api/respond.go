package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error types returned in error bodies alongside the task error types.
const (
	errTypeValidation  = "validation_error"
	errTypeNotFound    = "not_found"
	errTypeUnavailable = "unavailable"
	errTypeInternal    = "internal"
)

var validate = newValidator()

// newValidator reports field errors by their query parameter name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	return v
}

// errorResponse is the JSON body of every error response.
type errorResponse struct {
	Error  string `json:"error"`
	Type   string `json:"type"`
	TaskID string `json:"task_id,omitempty"`
}

// writeJSON writes v as a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message, errType string) {
	s.writeJSON(w, status, errorResponse{Error: message, Type: errType})
}

// bindQuery copies the named query parameters into dst's string fields,
// keyed by their `query` tag, and validates dst.
func bindQuery(values url.Values, dst any) error {
	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()
	for i := range rt.NumField() {
		name := rt.Field(i).Tag.Get("query")
		if name == "" || rv.Field(i).Kind() != reflect.String {
			continue
		}
		rv.Field(i).SetString(values.Get(name))
	}
	return validate.Struct(dst)
}

// validationMessage renders a validator error for clients.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid query parameters"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return "invalid query parameters: " + strings.Join(parts, "; ")
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
