// Package validator validates inbound payloads and reports failures as field-to-message maps.
package validator

// Validator validates structs tagged with `validate`.
type Validator interface {
	Validate(data any) error
}
