package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits page_size.
	DefaultPageSize = 50
	// DefaultMaxPageSize caps the supported page_size to prevent unbounded responses.
	DefaultMaxPageSize = 100

	pageSizeParam  = "page_size"
	pageTokenParam = "page_token"
)

// Params bundles the pagination values extracted from a request.
type Params struct {
	PageSize  int
	PageToken string
	Offset    int
}

// Options control how Parse behaves for a given handler.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid page_size")
	ErrInvalidPageToken = errors.New("pagination: invalid page_token")
)

// FromRequest parses the supported query parameters from the supplied request.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse consumes the provided query values and returns the normalised Params.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	pageSize, err := parsePageSize(values.Get(pageSizeParam), opts)
	if err != nil {
		return Params{}, err
	}
	params := Params{PageSize: pageSize}

	if raw := strings.TrimSpace(values.Get(pageTokenParam)); raw != "" {
		offset, err := DecodeToken(raw)
		if err != nil {
			return Params{}, err
		}
		params.PageToken = raw
		params.Offset = offset
	}
	return params, nil
}

func parsePageSize(raw string, opts Options) (int, error) {
	defaultSize := opts.DefaultPageSize
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	maxSize := opts.MaxPageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPageSize
	}
	if defaultSize > maxSize {
		defaultSize = maxSize
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultSize, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
	}
	if size <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPageSize)
	}
	if size > maxSize {
		size = maxSize
	}
	return size, nil
}

// Slice returns the page of items selected by params and the token for the following page, which
// is empty on the last page.
func Slice[T any](items []T, params Params) ([]T, string) {
	size := params.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	start := params.Offset
	if start < 0 || start >= len(items) {
		return items[:0:0], ""
	}
	end := start + size
	if end >= len(items) {
		return items[start:], ""
	}
	return items[start:end], EncodeToken(end)
}
