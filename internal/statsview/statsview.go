//go:build statsview

package statsview

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Addr is the listen address of the stats server
const Addr = "localhost:12700"

// refreshMillis is how often the charts sample the runtime
const refreshMillis = 1000

// Launch starts serving in the background and returns a function that
// shuts the server down
func Launch(output io.Writer) (stop func()) {
	viewer.SetConfiguration(viewer.WithAddr(Addr), viewer.WithInterval(refreshMillis))
	mgr := statsview.New()

	go func() {
		if err := mgr.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("[STATSVIEW] %v", err)
		}
	}()

	fmt.Fprintf(output, "runtime charts at http://%s/debug/statsview, pprof at http://%s/debug/pprof/\n", Addr, Addr)
	return mgr.Stop
}

// Available reports whether this build includes the stats server
func Available() bool {
	return true
}
