package errors

var (
	ErrNotAuthenticated = &DomainError{
		Code:    "NOT_AUTHENTICATED",
		Message: "User not authenticated",
	}
	ErrNotAuthorized = &DomainError{
		Code:    "NOT_AUTHORIZED",
		Message: "Not authorized for pickup at this time",
	}
	ErrTokenExpired = &DomainError{
		Code:    "TOKEN_EXPIRED",
		Message: "Token expired",
	}
	ErrInvalidTokenFormat = &DomainError{
		Code:    "INVALID_TOKEN_FORMAT",
		Message: "Invalid token format",
	}
	ErrTokenAlreadyUsed = &DomainError{
		Code:    "TOKEN_ALREADY_USED",
		Message: "Token already used",
	}
	ErrInvalidCredentials = &DomainError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid credentials",
	}
)
