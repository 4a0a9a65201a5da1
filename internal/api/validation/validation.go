// Package validation configures gin's validator and turns binding
// failures into field-level messages.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/media"
)

var (
	registerOnce sync.Once
	registerErr  error

	folderPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+(/[A-Za-z0-9_\-]+)*$`)
)

// Register installs JSON field names and the custom tags on gin's default
// validator. Safe to call more than once.
func Register() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("validation: unexpected validator engine")
			return
		}
		v.RegisterTagNameFunc(fieldName)
		if err := v.RegisterValidation("mediaurl", validateMediaURL); err != nil {
			registerErr = err
			return
		}
		registerErr = v.RegisterValidation("folder", validateFolder)
	})
	return registerErr
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// validateMediaURL accepts an absolute http(s) URL or a file name whose
// extension suits the media slot named by the tag parameter.
func validateMediaURL(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return false
	}
	if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return u.Host != ""
	}
	return media.AllowedExtension(media.Field(fl.Param()), s)
}

func validateFolder(fl validator.FieldLevel) bool {
	return folderPattern.MatchString(fl.Field().String())
}

// FieldErrors converts a bind error into field messages. Errors it does not
// recognise yield a single "body" entry.
func FieldErrors(err error) []pkgerrors.FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]pkgerrors.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			field := fieldPath(fe.Namespace())
			out = append(out, pkgerrors.FieldError{Field: field, Message: message(field, fe)})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return []pkgerrors.FieldError{{Field: field, Message: fmt.Sprintf("%s must be a %s", field, typeErr.Type.String())}}
	}

	if errors.Is(err, io.EOF) {
		return []pkgerrors.FieldError{{Field: "body", Message: "Request body is required"}}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return []pkgerrors.FieldError{{Field: "body", Message: "Malformed JSON"}}
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return []pkgerrors.FieldError{{Field: "query", Message: fmt.Sprintf("invalid value %q", numErr.Num)}}
	}

	return []pkgerrors.FieldError{{Field: "body", Message: err.Error()}}
}

// fieldPath drops the struct name prefix: "CreateLocationRequest.coordinates.latitude"
// becomes "coordinates.latitude".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(field string, fe validator.FieldError) string {
	name := field
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		name = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email address"
	case "uuid":
		return name + " must be a valid id"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		if isLength(fe) {
			return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s items", name, fe.Param())
		}
		if isLength(fe) {
			return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "mediaurl":
		return fmt.Sprintf("%s must be a valid URL or %s file", name, strings.Join(media.Extensions(media.Field(fe.Param())), "/"))
	case "folder":
		return name + " may only contain letters, digits, dashes, underscores and slashes"
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
	}
}

func isLength(fe validator.FieldError) bool {
	return fe.Kind() == reflect.String
}
