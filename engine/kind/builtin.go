package kind

import (
	"embed"
	"fmt"
	"sync"
)

const APIVersionV1alpha1 = "backstage.io/v1alpha1"

//go:embed schemas/*.json
var schemaFS embed.FS

// builtinKinds is evaluated in this order.
var builtinKinds = []struct {
	kind string
	file string
}{
	{"API", "schemas/api_v1alpha1.json"},
	{"Component", "schemas/component_v1alpha1.json"},
	{"Group", "schemas/group_v1alpha1.json"},
	{"Location", "schemas/location_v1alpha1.json"},
	{"Template", "schemas/template_v1alpha1.json"},
	{"User", "schemas/user_v1alpha1.json"},
}

var builtinSet = sync.OnceValue(func() *Set {
	validators := make([]Validator, 0, len(builtinKinds))
	for _, k := range builtinKinds {
		raw, err := schemaFS.ReadFile(k.file)
		if err != nil {
			panic(fmt.Sprintf("kind: missing embedded schema %s: %v", k.file, err))
		}
		validators = append(validators, NewSchemaValidator(APIVersionV1alpha1, k.kind, raw))
	}
	return NewSet(validators...)
})

// Builtin returns the validators for the kinds the catalog ships with.
func Builtin() *Set {
	return builtinSet()
}

// BuiltinSchema returns the raw embedded schema for a built-in kind.
func BuiltinSchema(kind string) ([]byte, bool) {
	for _, k := range builtinKinds {
		if k.kind == kind {
			raw, err := schemaFS.ReadFile(k.file)
			return raw, err == nil
		}
	}
	return nil, false
}
