//go:build !cgo || !(linux || darwin || freebsd)

package native

func dlopenGlobal(path string) error {
	return ErrPreloadUnsupported
}
