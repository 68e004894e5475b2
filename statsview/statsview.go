//go:build statsview
// +build statsview

package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Enabled is true when the binary was built with the statsview tag.
const Enabled = true

const (
	listenAddr = "localhost:12600"
	graphsPath = "/debug/statsview"
	// sampleInterval is the refresh period of the graphs in milliseconds.
	sampleInterval = 1000
)

// Launch serves the runtime graphs in the background and writes their URL to w.
func Launch(w io.Writer) {
	viewer.SetConfiguration(viewer.WithAddr(listenAddr), viewer.WithInterval(sampleInterval))
	go statsview.New().Start()
	fmt.Fprintf(w, "runtime graphs at http://%s%s\n", listenAddr, graphsPath)
}
