package entitlement

import "errors"

var (
	ErrUnknownPlan = errors.New("unknown subscription plan")
)
