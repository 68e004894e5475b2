// Package statsview serves graphs of the Go runtime (heap, goroutines, GC
// pauses) while the emulator runs. It is compiled in only with
//
//	go build -tags statsview
//
// and listens on localhost:12600, the graphs are under /debug/statsview.
package statsview
