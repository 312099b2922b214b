package importer

import "fmt"

// ImportError reports why a source could not be fully imported.
// Tasks created before the failure are kept.
type ImportError struct {
	Path string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Path, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
