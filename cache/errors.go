package cache

import "fmt"

// Common errors
var (
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrDatabaseConnection = fmt.Errorf("database connection error")
	ErrTransactionFailed  = fmt.Errorf("transaction failed")
	ErrNoEventsFound      = fmt.Errorf("no events found")
)
