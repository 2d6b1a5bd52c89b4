package models

import "fmt"

// ClientError marks a failure caused by input the caller (or the model acting
// on the caller's behalf) supplied. The HTTP edge maps it to a 4xx response.
type ClientError struct {
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Err
}
