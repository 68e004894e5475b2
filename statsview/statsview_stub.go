//go:build !statsview
// +build !statsview

package statsview

import "io"

// Enabled is true when the binary was built with the statsview tag.
const Enabled = false

// Launch does nothing without the statsview tag.
func Launch(w io.Writer) {}
