// Package model defines the application and statement records of the Lighter session service.
package model

import "github.com/google/uuid"

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}
