package domain

import (
	"codeshare/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidatePayload checks that payload has the type expected for kind and that
// its fields satisfy their constraints.
func ValidatePayload(kind IntentKind, payload any) error {
	var ok bool
	switch kind {
	case IntentEdit:
		_, ok = payload.(EditPayload)
	case IntentCursorMove:
		_, ok = payload.(CursorPayload)
	case IntentLanguageChange:
		_, ok = payload.(LanguagePayload)
	case IntentLockToggle:
		_, ok = payload.(LockPayload)
	case IntentRoleChange:
		_, ok = payload.(RolePayload)
	case IntentChat:
		_, ok = payload.(ChatPayload)
	case IntentExecuteRequest:
		_, ok = payload.(ExecutePayload)
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownIntent, kind)
	}
	if !ok {
		return fmt.Errorf("%w: %T is not a %s payload", errors.ErrInvalidPayload, payload, kind)
	}
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}
