package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const maxBodyBytes = 1 << 20

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

// getValidator reports fields by their JSON names.
func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New(validator.WithRequiredStructEnabled())
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return vld
}

// decodeAndValidate reads a JSON body into dst and runs struct validation. On failure it
// writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, r, fmt.Errorf("%w: request body too large", domain.ErrInvalidArgument), nil)
		case errors.Is(err, io.EOF):
			writeError(w, r, fmt.Errorf("%w: request body required", domain.ErrInvalidArgument), nil)
		default:
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		}
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		details := map[string]string{}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				details[fe.Field()] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), details)
		return false
	}
	return true
}
