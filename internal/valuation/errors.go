package valuation

import (
	"errors"
	"fmt"
)

// Kind classifies failures coming out of a market-data capability.
// The resolver branches on Kind, never on concrete error types.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNavFetch: last NAV unobtainable, fatal for one fund's resolution
	KindNavFetch
	// KindDataSource: transport/parse failure past the NAV stage, triggers fallback
	KindDataSource
	// KindConfiguration: invalid network configuration, must fail fast
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindNavFetch:
		return "nav_fetch"
	case KindDataSource:
		return "data_source"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is a classified error
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NavFetchError wraps err as KindNavFetch
func NavFetchError(op string, err error) error {
	return &Error{Kind: KindNavFetch, Op: op, Err: err}
}

// DataSourceError wraps err as KindDataSource
func DataSourceError(op string, err error) error {
	return &Error{Kind: KindDataSource, Op: op, Err: err}
}

// ConfigurationError wraps err as KindConfiguration
func ConfigurationError(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

// KindOf returns the Kind of the outermost classified error in err's chain.
// nil and unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
