package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"budgetplan/internal/core"
)

const maxBodyBytes = 1 << 20

type (
	exchangeRateRequest struct {
		Rate float64 `json:"rate" validate:"gt=0"`
	}

	withdrawalRequest struct {
		SavingsID   string `json:"savingsId" validate:"required,max=128"`
		Amount      amount `json:"amount" validate:"gt=0"`
		Description string `json:"description" validate:"max=500"`
	}
)

// amount accepts a JSON number or a string typed by the user, such as
// "120,5". Fractions are rounded half-up.
type amount int64

func (a *amount) UnmarshalJSON(b []byte) error {
	raw := string(b)
	if s, err := strconv.Unquote(raw); err == nil {
		raw = s
	}
	v, err := core.ParseAmount(raw)
	if err != nil {
		return fmt.Errorf("amount %s: %w", b, err)
	}
	*a = amount(v)
	return nil
}

// decodeJSON reads one JSON document from the body into dst. dst may be
// pre-populated; fields absent from the body keep their value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON document")
	}
	return nil
}

// validationFields flattens validator errors to field -> failed tag.
func validationFields(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

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

func pathInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func yearMonth(r *http.Request) (int, int, error) {
	year, err := pathInt(r, "year")
	if err != nil {
		return 0, 0, err
	}
	month, err := pathInt(r, "month")
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}
