package handler

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

// BindError converts a ShouldBindJSON failure into an error for the error
// middleware. Validation failures pass through so the field is reported.
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return err
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return apperrors.NewValidation(apperrors.KeyInvalidRequest, map[string]string{"detail": "request body is required"}, err)
	case errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return apperrors.NewValidation(apperrors.KeyInvalidRequest, map[string]string{"detail": "malformed JSON"}, err)
	}
	return apperrors.NewBadRequest("invalid request body", err)
}

// ParamID parses a uuid path parameter, attaching a not-found error on
// failure.
func ParamID(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.Error(apperrors.NewNotFound(resource, err))
		return uuid.Nil, false
	}
	return id, true
}
