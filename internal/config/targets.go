package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/pricealert/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Numbers are kept as text so both 60000 and "60000" are accepted.
type targetSpec struct {
	ID        string  `yaml:"id" validate:"required"`
	Label     string  `yaml:"label"`
	Threshold *string `yaml:"threshold" validate:"required"`
	Buffer    string  `yaml:"buffer" default:"0"`
}

type targetsFile struct {
	Targets []targetSpec `yaml:"targets" validate:"required,min=1,unique=ID,dive"`
}

// LoadTargets reads the targets file. Every failure wraps domain.ErrConfig.
func LoadTargets(path string) ([]domain.Target, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read targets: %v", domain.ErrConfig, err)
	}
	return ParseTargets(b)
}

// ParseTargets decodes a JSON or YAML targets document and applies defaults.
func ParseTargets(b []byte) ([]domain.Target, error) {
	var f targetsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: parse targets: %v", domain.ErrConfig, err)
	}
	for i := range f.Targets {
		if err := defaults.Set(&f.Targets[i]); err != nil {
			return nil, fmt.Errorf("%w: defaults: %v", domain.ErrConfig, err)
		}
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfig, describe(err))
	}

	out := make([]domain.Target, 0, len(f.Targets))
	for _, s := range f.Targets {
		id := strings.TrimSpace(s.ID)
		threshold, err := finite(*s.Threshold)
		if err != nil {
			return nil, fmt.Errorf("%w: target %q: threshold: %v", domain.ErrConfig, id, err)
		}
		buffer, err := finite(s.Buffer)
		if err != nil {
			return nil, fmt.Errorf("%w: target %q: buffer: %v", domain.ErrConfig, id, err)
		}
		if buffer < 0 {
			return nil, fmt.Errorf("%w: target %q: buffer must be >= 0, got %v", domain.ErrConfig, id, buffer)
		}
		label := strings.TrimSpace(s.Label)
		if label == "" {
			label = id
		}
		out = append(out, domain.Target{
			ID:        domain.TargetID(id),
			Label:     label,
			Threshold: threshold,
			Buffer:    buffer,
		})
	}
	return out, nil
}

// ValidateTargets re-checks targets built outside of a file (tests, CLI flags).
func ValidateTargets(ts []domain.Target) error {
	if len(ts) == 0 {
		return fmt.Errorf("%w: no targets configured", domain.ErrConfig)
	}
	seen := make(map[domain.TargetID]struct{}, len(ts))
	for _, t := range ts {
		if t.ID == "" {
			return fmt.Errorf("%w: target without id", domain.ErrConfig)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate target id %q", domain.ErrConfig, t.ID)
		}
		seen[t.ID] = struct{}{}
		if !isFinite(t.Threshold) || !isFinite(t.Buffer) {
			return fmt.Errorf("%w: target %q: threshold and buffer must be finite", domain.ErrConfig, t.ID)
		}
		if t.Buffer < 0 {
			return fmt.Errorf("%w: target %q: buffer must not be negative", domain.ErrConfig, t.ID)
		}
	}
	return nil
}

func finite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if !isFinite(v) {
		return 0, fmt.Errorf("not finite: %q", raw)
	}
	return v, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := strings.TrimPrefix(fe.Namespace(), "targetsFile.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s entry", field, fe.Param()))
		case "unique":
			msgs = append(msgs, fmt.Sprintf("%s must have unique %s values", field, strings.ToLower(fe.Param())))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation: %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
