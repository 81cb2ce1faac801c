package surrealrecord

import (
	"strings"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/models"
)

// saveRule reports whether a field must be left out of a save.
type saveRule struct {
	name    string
	exclude func(selected map[string]struct{}, name string, value any) bool
}

// saveRules run in order; the first rule that excludes a field wins.
var saveRules = []saveRule{
	{
		name: "not selected",
		exclude: func(selected map[string]struct{}, name string, _ any) bool {
			if len(selected) == 0 {
				return false
			}
			_, ok := selected[name]
			return !ok
		},
	},
	{
		name: "reserved",
		exclude: func(_ map[string]struct{}, name string, _ any) bool {
			switch name {
			case constants.FieldID, constants.FieldContainerID, constants.FieldProperties:
				return true
			}
			return false
		},
	},
	{
		name: "empty or internal",
		exclude: func(_ map[string]struct{}, name string, value any) bool {
			if s, ok := value.(string); ok && s == "" {
				return true
			}
			return strings.HasPrefix(name, constants.InternalPrefix)
		},
	},
}

// excludedBy returns the name of the rule excluding the field, or "".
func excludedBy(selected map[string]struct{}, name string, value any) string {
	for _, rule := range saveRules {
		if rule.exclude(selected, name, value) {
			return rule.name
		}
	}
	return ""
}

// fieldsForSave applies the save rules to every field. It also returns the
// excluded fields with the rule that excluded them.
func fieldsForSave(fields models.Fields, selected []string) (models.Fields, map[string]string) {
	allow := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		allow[name] = struct{}{}
	}

	out := make(models.Fields, len(fields))
	skipped := make(map[string]string)
	for name, value := range fields {
		if rule := excludedBy(allow, name, value); rule != "" {
			skipped[name] = rule
			continue
		}
		out[name] = value
	}
	return out, skipped
}
