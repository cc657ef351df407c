package services

import (
	"errors"

	"github.com/cargoline/api/internal/repositories"
)

// repoErrorIs inspects wrapped repository errors for a given category.
func repoErrNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

func repoErrConflict(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsConflict()
	}
	return false
}
