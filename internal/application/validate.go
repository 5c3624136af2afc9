package application

import (
	"github.com/google/uuid"

	"github.com/oksasatya/go-anon-feedback/pkg/validation"
)

type rule struct {
	field string
	value any
	tag   string
}

// check validates every rule and returns a ValidationError with all failures.
func check(rules ...rule) error {
	var details map[string]string
	for _, r := range rules {
		for k, v := range validation.Var(r.field, r.value, r.tag) {
			if details == nil {
				details = make(map[string]string)
			}
			details[k] = v
		}
	}
	if details != nil {
		return validationError(details)
	}
	return nil
}

// checkID rejects ids that cannot exist in the store.
func checkID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return validationError(map[string]string{field: "must be a valid UUID"})
	}
	return nil
}
