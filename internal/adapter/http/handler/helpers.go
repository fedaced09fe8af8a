package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/Temutjin2k/droply/internal/domain/models"
	t "github.com/Temutjin2k/droply/internal/domain/types"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := encodeJSON(data)
	if err != nil {
		return err
	}
	writeRaw(w, status, js, headers)
	return nil
}

func encodeJSON(data envelope) ([]byte, error) {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return nil, errors.New("failed to encode json")
	}
	return append(js, '\n'), nil
}

func writeRaw(w http.ResponseWriter, status int, js []byte, headers http.Header) {
	maps.Copy(w.Header(), headers)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		// encoding/json has no typed error for unknown fields yet (golang/go#29035)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			return fmt.Errorf("invalid unmarshal error: %w", err)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// readID parses the {id} path value.
func readID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid package id")
	}
	return id, nil
}

// currentUserID returns the authenticated caller, or "" for anonymous requests.
func currentUserID(r *http.Request) string {
	u := models.UserFromContext(r.Context())
	if u.IsAnonymous() {
		return ""
	}
	return u.ID
}

func GetCode(err error) int {
	switch {
	case IsOneOf(err, t.ErrResolutionFailed, t.ErrInvalidCoordinate, t.ErrInvalidStatus, t.ErrInvalidPackage):
		return http.StatusBadRequest
	case IsOneOf(err, t.ErrUnauthorized):
		return http.StatusUnauthorized
	case IsOneOf(err, t.ErrForbidden):
		return http.StatusForbidden
	case IsOneOf(err, t.ErrPackageNotFound, t.ErrNotFound):
		return http.StatusNotFound
	case IsOneOf(err, t.ErrAlreadyTaken, t.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func IsOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// clientMessage hides internal error text behind a generic message.
func clientMessage(err error) string {
	if GetCode(err) == http.StatusInternalServerError {
		return "the server encountered a problem and could not process your request"
	}
	for _, target := range []error{
		t.ErrResolutionFailed, t.ErrInvalidCoordinate, t.ErrInvalidStatus, t.ErrInvalidPackage, t.ErrUnauthorized,
		t.ErrForbidden, t.ErrPackageNotFound, t.ErrNotFound, t.ErrAlreadyTaken, t.ErrInvalidTransition,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
