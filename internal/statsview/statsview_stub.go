//go:build !statsview

package statsview

import (
	"fmt"
	"io"
)

// Launch reports that this build has no stats server
func Launch(output io.Writer) (stop func()) {
	fmt.Fprintln(output, "stats server unavailable: rebuild with -tags statsview")
	return func() {}
}

// Available reports whether this build includes the stats server
func Available() bool {
	return false
}
