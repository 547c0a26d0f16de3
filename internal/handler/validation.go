package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/media"
)

var requestValidator = newValidator()

// newValidator reports fields by their JSON names so error fields match
// what the client sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizer is implemented by requests that tidy their fields between
// decoding and validation.
type normalizer interface {
	normalize()
}

// decodeAndValidate reads exactly one JSON object of at most limit bytes
// into dst, normalizes it when dst is a normalizer, and runs struct
// validation on it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("", "request body is too large")
		}
		var unknown *json.UnmarshalTypeError
		if errors.As(err, &unknown) {
			return apperror.ValidationFailed(unknown.Field, "invalid "+unknown.Field)
		}
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("", "request body is required")
		}
		if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			name = strings.Trim(name, `"`)
			return apperror.ValidationFailed(name, "unknown field "+name)
		}
		return apperror.ValidationFailed("", "invalid JSON body")
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperror.ValidationFailed("", "invalid JSON body")
	}

	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	return validateStruct(dst)
}

func validateStruct(dst any) error {
	err := requestValidator.Struct(dst)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return apperror.ValidationFailed("", "invalid request payload")
	}

	first := validationErrors[0]
	field := first.Field()
	switch first.Tag() {
	case "required":
		return apperror.ValidationFailed(field, field+" is required")
	case "email":
		return apperror.ValidationFailed(field, "invalid email format")
	case "max":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be at most %s characters", field, first.Param()))
	case "oneof":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be one of: %s", field, first.Param()))
	default:
		return apperror.ValidationFailed(field, "invalid "+field)
	}
}

// queryInt parses an optional integer query parameter. Absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

// multipartForm parses a multipart body of at most limit bytes. The caller
// must call the returned cleanup when done with the form's files.
func multipartForm(w http.ResponseWriter, r *http.Request, limit int64) (func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return func() {}, apperror.ValidationFailed("", "request body is too large")
		}
		return func() {}, apperror.ValidationFailed("", "invalid multipart form")
	}
	return func() { r.MultipartForm.RemoveAll() }, nil
}

// formFile returns the named file from a parsed multipart form, or nil when
// the client did not send one.
func formFile(r *http.Request, field string) (*media.File, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperror.ValidationFailed(field, "invalid "+field+" file")
	}
	return &media.File{Name: header.Filename, Reader: file}, nil
}

// closeFile releases the upload behind f, if any.
func closeFile(f *media.File) {
	if f == nil {
		return
	}
	if c, ok := f.Reader.(io.Closer); ok {
		c.Close()
	}
}

// formValue returns the named form value and whether it was sent at all.
func formValue(r *http.Request, field string) (*string, bool) {
	if r.MultipartForm == nil {
		return nil, false
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil, false
	}
	return &values[0], true
}

// trimPtr trims *s in place when s is set.
func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
