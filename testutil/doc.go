// Package testutil provides testing utilities for rastercache.
//
// This package is intended for use in tests and benchmarks only.
//
// # Deterministic Block Content
//
//	r := testutil.NewPatternRaster(2, 4, 4, 256, raster.ReadWrite)
//	want := testutil.Pattern(raster.Coord{Band: 1, Row: 2, Col: 3}, 256)
//
// # Access Patterns
//
//	rng := testutil.NewRNG(seed)
//	c := rng.Coord(layout)          // uniform
//	c = rng.ZipfCoord(layout, 1.2)  // skewed, hot blocks first
//
// # Fault Injection
//
//	fr := testutil.NewFaultyRaster(r)
//	fr.FailRead(coord, errBoom)
package testutil
