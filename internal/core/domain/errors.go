package domain

import "errors"

var (
	ErrNotFound       = errors.New("short url not found")
	ErrInvalidURL     = errors.New("invalid url")
	ErrUnsafeURL      = errors.New("url flagged as unsafe")
	ErrUnreachableURL = errors.New("url is not reachable")
	ErrHashCollision  = errors.New("could not allocate a unique hash")
	ErrHashExists     = errors.New("hash already taken")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsHashExistsError(err error) bool {
	return errors.Is(err, ErrHashExists)
}

func IsInvalidURLError(err error) bool {
	return errors.Is(err, ErrInvalidURL)
}

// IsRejectedURLError reports whether the URL was well formed but refused by
// one of the safety or reachability checks.
func IsRejectedURLError(err error) bool {
	return errors.Is(err, ErrUnsafeURL) || errors.Is(err, ErrUnreachableURL)
}
