package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/sigcompile/internal/platform/apierr"
	"github.com/yungbote/sigcompile/internal/platform/ctxutil"
	"github.com/yungbote/sigcompile/internal/platform/logger"
)

const internalErrorDetail = "internal server error"

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func respondDetail(c *gin.Context, status int, detail string) {
	if strings.TrimSpace(detail) == "" {
		detail = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail})
}

// respondError writes err as {"detail": ...}. Errors classified with apierr
// expose their message; anything else is logged and reported opaquely.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	reqID := ctxutil.RequestID(c.Request.Context())
	if ae, ok := apierr.As(err); ok && ae.Status != 0 {
		if ae.Status >= 500 {
			log.Error("request failed", "error", err, "code", ae.Code, "request_id", reqID)
		}
		respondDetail(c, ae.Status, ae.Error())
		return
	}
	log.Error("request failed", "error", err, "request_id", reqID)
	respondDetail(c, http.StatusInternalServerError, internalErrorDetail)
}

// bindError classifies a ShouldBindJSON failure.
func bindError(err error) *apierr.Error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierr.New(http.StatusRequestEntityTooLarge, "request_too_large",
			fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
	}
	return apierr.New(http.StatusUnprocessableEntity, "invalid_request", errors.New(describeBindError(err)))
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: field %s", fieldPath(fe.Namespace()), fe.Tag()))
		}
		return strings.Join(msgs, "; ")
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s: expected %s, got %s", typeErr.Field, typeErr.Type.String(), typeErr.Value)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	}
	if errors.Is(err, io.EOF) {
		return "request body is required"
	}
	return err.Error()
}

// fieldPath drops the root struct name: "CompileRequest.inputs[0].name" -> "inputs[0].name".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

var tagNameOnce sync.Once

// useJSONFieldNames makes validator report json names instead of Go names.
func useJSONFieldNames() {
	tagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			switch name {
			case "-":
				return ""
			case "":
				return f.Name
			default:
				return name
			}
		})
	})
}
