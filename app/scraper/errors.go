package scraper

import (
	"errors"
	"fmt"
)

var ErrNoData = errors.New("no usable data found in page")

// Error wraps any scrape failure with the platform it came from.
type Error struct {
	Platform Platform
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to scrape %s URL: %v", e.Platform.DisplayName(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the platform response status behind err, or 0.
func HTTPStatus(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
