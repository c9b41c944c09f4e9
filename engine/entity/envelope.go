package entity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/compozy/catalog/engine/core"
)

const ErrCodeEnvelope = "INVALID_ENVELOPE"

var (
	apiVersionRe = regexp.MustCompile(`^[a-z0-9]([-a-z0-9.]*[a-z0-9])?/[a-z0-9]+$`)
	kindRe       = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)
	nameRe       = regexp.MustCompile(`^[a-zA-Z0-9]+([-_.][a-zA-Z0-9]+)*$`)
	namespaceRe  = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	labelKeyRe   = regexp.MustCompile(`^([a-z0-9]([-a-z0-9.]*[a-z0-9])?/)?[a-zA-Z0-9]+([-_.][a-zA-Z0-9]+)*$`)
	tagRe        = regexp.MustCompile(`^[a-z0-9+#]+(-[a-z0-9+#]+)*$`)
)

// envelope is the shape checked for every entity regardless of kind.
type envelope struct {
	APIVersion string            `validate:"required,api_version"`
	Kind       string            `validate:"required,max=63,entity_kind"`
	Name       string            `validate:"required,max=63,entity_name"`
	Namespace  string            `validate:"omitempty,max=63,entity_namespace"`
	Labels     map[string]string `validate:"dive,keys,max=253,label_key,endkeys,omitempty,max=63,entity_name"`
	Tags       []string          `validate:"dive,required,max=63,entity_tag"`
}

// EnvelopeValidator checks the fields shared by all kinds.
type EnvelopeValidator struct {
	validate *validator.Validate
}

// NewEnvelopeValidator registers the entity field rules.
func NewEnvelopeValidator() *EnvelopeValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "api_version", apiVersionRe)
	mustRegister(v, "entity_kind", kindRe)
	mustRegister(v, "entity_name", nameRe)
	mustRegister(v, "entity_namespace", namespaceRe)
	mustRegister(v, "label_key", labelKeyRe)
	mustRegister(v, "entity_tag", tagRe)
	return &EnvelopeValidator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

// Validate returns a coded error describing every envelope violation.
func (v *EnvelopeValidator) Validate(e *Entity) error {
	if e == nil {
		return core.NewError(errors.New("entity is nil"), ErrCodeEnvelope, nil)
	}
	err := v.validate.Struct(envelope{
		APIVersion: e.APIVersion,
		Kind:       e.Kind,
		Name:       e.Metadata.Name,
		Namespace:  e.Metadata.Namespace,
		Labels:     e.Metadata.Labels,
		Tags:       e.Metadata.Tags,
	})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return core.NewError(err, ErrCodeEnvelope, nil)
	}
	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, fmt.Sprintf("%s failed %s", fieldPath(fe), fe.Tag()))
	}
	return core.NewError(
		errors.New(strings.Join(violations, "; ")),
		ErrCodeEnvelope,
		map[string]any{"entity": e.Ref().String(), "violations": violations},
	)
}

var envelopePaths = map[string]string{
	"APIVersion": "apiVersion",
	"Kind":       "kind",
	"Name":       "metadata.name",
	"Namespace":  "metadata.namespace",
	"Labels":     "metadata.labels",
	"Tags":       "metadata.tags",
}

func fieldPath(fe validator.FieldError) string {
	field := fe.Field()
	base, rest := field, ""
	if i := strings.IndexByte(field, '['); i >= 0 {
		base, rest = field[:i], field[i:]
	}
	if path, ok := envelopePaths[base]; ok {
		return path + rest
	}
	return field
}
