// Package loader extracts one variable (and, for multi-step files, one time
// slice) from a staged source file.
//
// Every supported file format is a Driver. A Driver opens a file into a
// Handle; the Handle answers ReadVariable and ReadTimeAxis and is closed by
// the caller. Drivers read the whole file into memory on Open, so a Handle
// stays valid after the staging directory is gone.
//
// Formats:
//
//   - ASCII: a CSV point table (code,value[,longitude,latitude]); one record,
//     no time axis.
//   - Binary: a little-endian int32 grid in column-major order with declared
//     rows/cols and an integer scale factor; one file per timestep.
//   - NetCDF: classic netCDF; rank-2 variables are read whole, rank-3
//     variables are sliced on their leading time dimension.
//
// A successful read returns a complete Record. A failed read returns an
// error wrapping one of the failure sentinels and no Record.
package loader
