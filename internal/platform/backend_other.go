//go:build !linux && !windows

package platform

// New reports ErrUnsupported; only X11 and Win32 desktops are handled.
func New() (Backend, error) {
	return nil, ErrUnsupported
}
