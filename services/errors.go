package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the HTTP layer can pick a status code
type ErrorKind string

const (
	KindUnauthorized   ErrorKind = "unauthorized"
	KindForbidden      ErrorKind = "forbidden"
	KindNotFound       ErrorKind = "not_found"
	KindValidation     ErrorKind = "validation"
	KindConflict       ErrorKind = "conflict"
	KindStorageFailure ErrorKind = "storage_failure"
)

// ServiceError is returned by every service operation that fails
type ServiceError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches another ServiceError with the same kind and code, so callers can
// compare against the sentinel values below with errors.Is.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

var (
	ErrUnauthorized      = &ServiceError{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: "Authentication required"}
	ErrTradeNotFound     = &ServiceError{Kind: KindNotFound, Code: "TRADE_NOT_FOUND", Message: "Trade not found"}
	ErrItemNotFound      = &ServiceError{Kind: KindNotFound, Code: "ITEM_NOT_FOUND", Message: "Item not found"}
	ErrUserNotFound      = &ServiceError{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "User not found"}
	ErrNotParticipant    = &ServiceError{Kind: KindForbidden, Code: "NOT_A_PARTICIPANT", Message: "You are not a participant in this trade"}
	ErrRoleNotAllowed    = &ServiceError{Kind: KindForbidden, Code: "ROLE_NOT_ALLOWED", Message: "Your role in this trade cannot set that status"}
	ErrItemNotOwned      = &ServiceError{Kind: KindForbidden, Code: "ITEM_NOT_OWNED", Message: "Not authorized to delete this item"}
	ErrItemInTrade       = &ServiceError{Kind: KindConflict, Code: "ITEM_IN_TRADE", Message: "The item is part of a trade and cannot be deleted"}
	ErrItemNotAvailable  = &ServiceError{Kind: KindConflict, Code: "ITEM_NOT_AVAILABLE", Message: "One or both items are no longer available"}
	ErrInvalidTransition = &ServiceError{Kind: KindConflict, Code: "INVALID_TRANSITION", Message: "The trade cannot move to that status"}
	ErrResourceBusy      = &ServiceError{Kind: KindConflict, Code: "RESOURCE_BUSY", Message: "The trade or its items are being modified, try again"}
)

func newError(kind ErrorKind, code, message string) *ServiceError {
	return &ServiceError{Kind: kind, Code: code, Message: message}
}

func validation(code, message string) *ServiceError {
	return newError(KindValidation, code, message)
}

func conflict(code, message string) *ServiceError {
	return newError(KindConflict, code, message)
}

func storageFailure(op string, err error) *ServiceError {
	return &ServiceError{Kind: KindStorageFailure, Code: "STORAGE_FAILURE", Message: op + " failed", Err: err}
}

// KindOf returns the kind carried by err, or KindStorageFailure for errors
// that did not originate in this package.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStorageFailure
}

// asServiceError passes ServiceErrors through and wraps anything else as a storage failure
func asServiceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return storageFailure(op, err)
}
