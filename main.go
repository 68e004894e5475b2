package main

import (
	"flag"
	"image/png"
	"os"
	"runtime/pprof"

	"github.com/golang/glog"

	"github.com/jyane/nescore/nes"
	"github.com/jyane/nescore/statsview"
)

var (
	path       = flag.String("path", "./rom/sample1.nes", "path to NES ROM file")
	frames     = flag.Int("frames", 60, "number of frames to run")
	out        = flag.String("out", "", "write the last frame as PNG to the file")
	scale      = flag.Int("scale", 1, "upscale factor of the PNG")
	save       = flag.String("save", "", "write a save state to the file after running")
	load       = flag.String("load", "", "restore a save state from the file before running")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	debug      = flag.Bool("debug", false, "run as debug mode")
	stats      = flag.Bool("statsview", false, "launch the runtime statistics server (statsview build only)")
)

func writePNG(path string, f *nes.Frame, factor int) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(w, f.Scaled(factor)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func loadState(console *nes.Console, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return console.LoadState(f)
}

func saveState(console *nes.Console, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := console.SaveState(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	flag.Parse()
	defer glog.Flush()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			glog.Fatal("Failed to create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			glog.Fatal("Failed to start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}
	if *stats {
		if statsview.Enabled {
			statsview.Launch(os.Stderr)
		} else {
			glog.Warning("statsview is not compiled in, build with -tags statsview")
		}
	}
	buf, err := os.ReadFile(*path)
	if err != nil {
		glog.Fatalln("Failed to read: "+*path, err)
	}
	console, err := nes.NewConsole(buf)
	if err != nil {
		glog.Fatalln("Failed to initiate Console: ", err)
	}
	if *load != "" {
		if err := loadState(console, *load); err != nil {
			glog.Fatalln("Failed to load state: ", err)
		}
	}
	if *debug {
		if err := nes.NewDebugConsole(console, os.Stdin, os.Stdout).Run(); err != nil {
			glog.Errorln("Debug console: ", err)
		}
	} else {
		for i := 0; i < *frames; i++ {
			console.StepFrame()
		}
		glog.Infof("Ran %d frames, %d CPU cycles", console.FrameCount(), console.CPU().Cycles())
	}
	if *save != "" {
		if err := saveState(console, *save); err != nil {
			glog.Fatalln("Failed to save state: ", err)
		}
	}
	if *out != "" {
		if err := writePNG(*out, console.Frame(), *scale); err != nil {
			glog.Fatalln("Failed to write PNG: ", err)
		}
	}
}
