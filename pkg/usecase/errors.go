package usecase

import (
	"errors"

	"github.com/stridelog/stridelog/pkg/repository/firestore"
	"github.com/stridelog/stridelog/pkg/repository/memory"
)

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrUserNotFound = errors.New("user not found")
	ErrJobNotFound  = errors.New("sync job not found")

	// Credential errors
	ErrNoCredentials = errors.New("no fitness credentials stored")
)

// Context keys for error values
const (
	UserIDKey = "user_id"
	JobIDKey  = "job_id"
)

// isNotFound reports whether err is the not-found sentinel of either
// repository backend.
func isNotFound(err error) bool {
	return errors.Is(err, firestore.ErrNotFound) || errors.Is(err, memory.ErrNotFound)
}
