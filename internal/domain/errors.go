package domain

import "errors"

var (
	// ErrAuth is returned when the warehouse or directory rejects the configured credential.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork is returned when the warehouse or directory endpoint is unreachable.
	ErrNetwork = errors.New("endpoint unreachable")
	// ErrQuery is returned when the warehouse rejects a statement.
	ErrQuery = errors.New("query failed")
	// ErrUnknownQuestion indicates a submitted question ID is not in the configured set.
	ErrUnknownQuestion = errors.New("question not found")
	// ErrIneligibleUser indicates the user is not present in the eligibility table.
	ErrIneligibleUser = errors.New("user not eligible")
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
)
