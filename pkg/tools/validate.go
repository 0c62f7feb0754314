package tools

import "fmt"

// validateArgs is a schema-lite check: it only enforces "required" string
// keys are present and, where a type is declared as "string", "number" or
// "boolean", that the supplied value matches; other declared types are not
// checked. It does not attempt full JSON Schema
// validation (enums, nested objects, formats) — that level of rigor isn't
// needed for the fixed, hand-authored schemas the built-in tools declare.
func validateArgs(schema map[string]any, args map[string]any) error {
	properties, _ := schema["properties"].(map[string]any)
	required, _ := schema["required"].([]string)

	for _, name := range required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	for name, value := range args {
		propRaw, ok := properties[name]
		if !ok {
			continue
		}
		prop, ok := propRaw.(map[string]any)
		if !ok {
			continue
		}
		wantType, _ := prop["type"].(string)
		if !typeMatches(wantType, value) {
			return fmt.Errorf("argument %q expected type %q", name, wantType)
		}
	}

	return nil
}

func typeMatches(wantType string, value any) bool {
	switch wantType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	default:
		return true
	}
}
