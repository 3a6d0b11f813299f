package controllers

import pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"

// serviceUnavailable reports a handler mounted without its service.
func serviceUnavailable(name string) error {
	return pkgerrors.Newf(pkgerrors.CodeInternal, "%s service unavailable", name)
}
