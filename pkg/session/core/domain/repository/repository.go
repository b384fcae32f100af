// Package repository declares the storage contracts of the Lighter session service.
package repository

// SessionRepository groups the stores backing one database.
type SessionRepository interface {
	ApplicationStorage
	StatementStorage

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
