// Command oxy-vidfx plays a video or image sequence through a compute-shader effect graph.
package main

import (
	"os"
	"runtime"
)

func init() {
	// GLFW and the surface must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
