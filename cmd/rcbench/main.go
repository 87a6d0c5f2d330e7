// Command rcbench creates blob-backed rasters and benchmarks block caches
// over them.
package main

func main() {
	execute()
}
