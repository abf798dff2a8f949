package loader

import "fmt"

// Registry maps each Kind to its Driver.
type Registry struct {
	drivers map[Kind]Driver
}

// NewRegistry returns a registry with the built-in ASCII, Binary and NetCDF
// drivers.
func NewRegistry() *Registry {
	r := &Registry{drivers: make(map[Kind]Driver)}
	r.Register(ASCII, ASCIIDriver{})
	r.Register(Binary, BinaryDriver{})
	r.Register(NetCDF, NetCDFDriver{})
	return r
}

// Register installs or replaces the driver for k.
func (r *Registry) Register(k Kind, d Driver) {
	r.drivers[k] = d
}

// Driver returns the driver for k.
func (r *Registry) Driver(k Kind) (Driver, error) {
	d, ok := r.drivers[k]
	if !ok {
		return nil, fmt.Errorf("no driver registered for format %s", k)
	}
	return d, nil
}
