//go:build !linux

package registry

func hostMemory() uint64 {
	return fallbackHostMemory
}
