package errors

var (
	ErrCheckInNotFound = &DomainError{
		Code:    "CHECKIN_NOT_FOUND",
		Message: "check-in not found",
	}
	ErrInvalidStatus = &DomainError{
		Code:    "INVALID_STATUS",
		Message: "invalid check-in status",
	}
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: "check-in status can only move forward",
	}
	ErrStorageFailure = &DomainError{
		Code:    "STORAGE_FAILURE",
		Message: "storage failure",
	}
)
