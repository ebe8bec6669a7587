package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/llehouerou/wavesd/internal/playlist"
)

var validate = newValidator()

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

// decodeParams unmarshals params into dest and validates it. Absent
// params decode as the zero value, so required fields still fail.
func decodeParams[T any](params json.RawMessage, dest *T) error {
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, dest); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
	}
	if err := validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidParams, describe(verrs))
		}
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

func describe(errs validator.ValidationErrors) string {
	msgs := make([]string, len(errs))
	for i, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "required_without":
			msgs[i] = field + " is required"
		case "min":
			msgs[i] = field + " must have at least " + fe.Param() + " entries"
		case "gte":
			msgs[i] = field + " must be at least " + fe.Param()
		default:
			msgs[i] = field + " is invalid (" + fe.Tag() + ")"
		}
	}
	return strings.Join(msgs, "; ")
}

// SongRef is a song reference: a path string or an object with a path.
type SongRef string

func (r *SongRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = SongRef(s)
		return nil
	}
	var obj struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("song must be a path or an object with a path: %w", err)
	}
	*r = SongRef(obj.Path)
	return nil
}

func refPaths(refs []SongRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r != "" {
			out = append(out, string(r))
		}
	}
	return out
}

// RepeatParam accepts a repeat mode as a name or a number.
type RepeatParam struct {
	Mode playlist.RepeatMode
}

func (p *RepeatParam) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int
		if err := json.Unmarshal(b, &n); err != nil {
			return errors.New("repeat mode must be a name or a number")
		}
		s = strconv.Itoa(n)
	}
	mode, err := playlist.ParseRepeatMode(s)
	if err != nil {
		return err
	}
	p.Mode = mode
	return nil
}
