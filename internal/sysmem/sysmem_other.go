//go:build !linux && !darwin

package sysmem

func probe() (Stats, error) {
	return Stats{}, ErrUnsupported
}
