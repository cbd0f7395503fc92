// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/ajg/form"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/pkg/errutil"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

var kindStatus = map[auth.ErrorKind]int{
	auth.KindUnauthorized: http.StatusUnauthorized,
	auth.KindNotFound:     http.StatusNotFound,
	auth.KindConflict:     http.StatusConflict,
	auth.KindInvalidCode:  http.StatusBadRequest,
	auth.KindCodeExpired:  http.StatusBadRequest,
	auth.KindInvalidInput: http.StatusUnprocessableEntity,
	auth.KindInternal:     http.StatusInternalServerError,
}

var kindDetail = map[auth.ErrorKind]string{
	auth.KindUnauthorized: "Could not validate credentials",
	auth.KindNotFound:     "Not found",
	auth.KindConflict:     "Already exists",
	auth.KindInvalidCode:  "Incorrect code",
	auth.KindCodeExpired:  "Code expired",
	auth.KindInvalidInput: "Invalid input",
	auth.KindInternal:     "Internal server error",
}

// codeDetail refines the reply for specific error codes.
var codeDetail = map[string]string{
	"AUTH_INVALID_CREDENTIALS": "Incorrect username or password",
	"USER_NOT_FOUND":           "User not found",
	"USER_EXISTS":              "User already exists",
	"RESET_CODE_NOT_FOUND":     "No reset code was requested for this user",
}

// StatusFor returns the HTTP status for err's kind.
func StatusFor(err error) int {
	if status, ok := kindStatus[auth.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func detailFor(err error) string {
	kind := auth.KindOf(err)
	if kind == auth.KindInternal {
		return kindDetail[kind]
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			if detail, ok := codeDetail[code]; ok {
				return detail
			}
		}
	}
	if kind == auth.KindInvalidInput {
		// "username must be at least 3 characters: invalid input"
		return strings.TrimSuffix(err.Error(), ": "+auth.ErrInvalidInput.Error())
	}
	return kindDetail[kind]
}

// fail writes err as an error reply. Internal errors are logged here and
// never described to the client.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), h.logger, "request failed",
			oops.With("request_id", middleware.GetReqID(r.Context())).
				With("route", routePattern(r)).
				Wrap(err))
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeDetail(w, r, status, detailFor(err))
}

func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Detail: detail})
}

// challenge rejects a request that lacks valid bearer credentials.
func challenge(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, r, http.StatusUnauthorized, detail)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance names fields by their JSON key in error messages.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// decode reads a JSON or form body into v and validates it. On failure it
// writes the reply and returns false.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	var err error
	switch render.GetRequestContentType(r) {
	case render.ContentTypeJSON:
		err = render.DecodeJSON(r.Body, v)
	case render.ContentTypeForm:
		// OAuth2 password-grant clients send grant_type, scope and friends.
		dec := form.NewDecoder(r.Body)
		dec.IgnoreUnknownKeys(true)
		err = dec.Decode(v)
	default:
		writeDetail(w, r, http.StatusUnsupportedMediaType,
			"Content-Type must be application/json or application/x-www-form-urlencoded")
		return false
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeDetail(w, r, http.StatusUnprocessableEntity, "Malformed request body")
		return false
	}

	if err := validatorInstance().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			h.fail(w, r, oops.Code("REQUEST_VALIDATION_FAILED").Wrap(err))
			return false
		}
		writeDetail(w, r, http.StatusUnprocessableEntity, describeValidation(verrs))
		return false
	}
	return true
}

func describeValidation(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email address")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
