// Package validator runs declarative field rules and reports every failure
// at once.
//
//	err := validator.Apply(
//	    validator.RequiredString("event_type", e.Type),
//	    validator.InList("recipient_class", e.RecipientClass, classes),
//	)
//	if ve := validator.ExtractValidationErrors(err); ve.Has("event_type") {
//	    ...
//	}
package validator
