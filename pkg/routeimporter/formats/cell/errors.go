package cell

import (
	"errors"
	"fmt"
)

// ErrEmptyRoute is returned by the resolver when the addressed line holds no
// edges at all
var ErrEmptyRoute = errors.New("route definition line is empty")

// ErrTruncatedRecord means the departure stream ended in the middle of a record
var ErrTruncatedRecord = errors.New("departure record truncated")

// FileError is fatal: a companion file is missing or cannot be opened
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("problems on opening '%s': %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// IndexFormatError is fatal: a persisted route index contains something
// other than decimal file offsets
type IndexFormatError struct {
	Path    string
	Line    int
	Content string
}

func (e *IndexFormatError) Error() string {
	return fmt.Sprintf("'%s' contains an invalid offset on line %d: %q", e.Path, e.Line, e.Content)
}

type MissingRouteError struct {
	DriverFile  string
	RouteFile   string
	RouteNumber int32
}

func (e *MissingRouteError) Error() string {
	return fmt.Sprintf("the file '%s' references the route #%d which is not available in '%s'", e.DriverFile, e.RouteNumber, e.RouteFile)
}

type UnknownEdgeError struct {
	RouteFile string
	Offset    uint64
	Edge      string
}

func (e *UnknownEdgeError) Error() string {
	return fmt.Sprintf("a route read from '%s' contains an unknown edge ('%s')", e.RouteFile, e.Edge)
}
