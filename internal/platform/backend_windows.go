//go:build windows

package platform

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"syscall"
	"unsafe"

	"github.com/1broseidon/winstrip/internal/desktop"
	"golang.org/x/sys/windows"
)

var (
	user32                    = windows.NewLazySystemDLL("user32.dll")
	shell32                   = windows.NewLazySystemDLL("shell32.dll")
	gdi32                     = windows.NewLazySystemDLL("gdi32.dll")
	procGetWindowRect         = user32.NewProc("GetWindowRect")
	procIsIconic              = user32.NewProc("IsIconic")
	procGetAncestor           = user32.NewProc("GetAncestor")
	procGetWindow             = user32.NewProc("GetWindow")
	procSetWindowPos          = user32.NewProc("SetWindowPos")
	procSetForegroundWindow   = user32.NewProc("SetForegroundWindow")
	procShowWindow            = user32.NewProc("ShowWindow")
	procGetSystemMetrics      = user32.NewProc("GetSystemMetrics")
	procSystemParametersInfoW = user32.NewProc("SystemParametersInfoW")
	procExtractIconExW        = shell32.NewProc("ExtractIconExW")
	procDestroyIcon           = user32.NewProc("DestroyIcon")
	procGetIconInfo           = user32.NewProc("GetIconInfo")
	procGetDIBits             = gdi32.NewProc("GetDIBits")
	procCreateCompatibleDC    = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC              = gdi32.NewProc("DeleteDC")
	procDeleteObject          = gdi32.NewProc("DeleteObject")
)

const (
	gaRoot                         = 2
	gwOwner                        = 4
	swRestore                      = 9
	smCxScreen                     = 0
	smCyScreen                     = 1
	spiGetWorkArea                 = 0x0030
	swpNoZOrder                    = 0x0004
	swpNoActivate                  = 0x0010
	processQueryLimitedInformation = 0x1000
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

type iconInfo struct {
	fIcon    uint32
	xHotspot uint32
	yHotspot uint32
	hbmMask  syscall.Handle
	hbmColor syscall.Handle
}

type bitmapInfoHeader struct {
	biSize          uint32
	biWidth         int32
	biHeight        int32
	biPlanes        uint16
	biBitCount      uint16
	biCompression   uint32
	biSizeImage     uint32
	biXPelsPerMeter int32
	biYPelsPerMeter int32
	biClrUsed       uint32
	biClrImportant  uint32
}

// EnumWindows callbacks are a limited resource, so one is shared by every
// enumeration and guarded by enumMu.
var (
	enumMu      sync.Mutex
	enumHandles []windows.HWND
	enumProc    = windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		enumHandles = append(enumHandles, windows.HWND(hwnd))
		return 1
	})
)

// WindowsBackend implements Backend over user32.
type WindowsBackend struct{}

var _ Backend = (*WindowsBackend)(nil)

// New opens the default backend for this platform.
func New() (Backend, error) {
	return &WindowsBackend{}, nil
}

// Close is a no-op; the backend holds no OS resources between calls.
func (b *WindowsBackend) Close() error { return nil }

// Windows enumerates every top-level window.
func (b *WindowsBackend) Windows(ctx context.Context) ([]desktop.Descriptor, error) {
	enumMu.Lock()
	enumHandles = enumHandles[:0]
	err := windows.EnumWindows(enumProc, nil)
	hwnds := append([]windows.HWND(nil), enumHandles...)
	enumMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}

	out := make([]desktop.Descriptor, 0, len(hwnds))
	for _, hwnd := range hwnds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, describe(hwnd))
	}
	return out, nil
}

func describe(hwnd windows.HWND) desktop.Descriptor {
	h := desktop.Handle(hwnd)

	var r winRect
	if ret, _, err := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r))); ret == 0 {
		return desktop.Descriptor{Handle: h, Err: fmt.Errorf("GetWindowRect: %w", err)}
	}

	var pid uint32
	windows.GetWindowThreadProcessId(hwnd, &pid)

	root, _, _ := procGetAncestor.Call(uintptr(hwnd), gaRoot)
	owner, _, _ := procGetWindow.Call(uintptr(hwnd), gwOwner)
	iconic, _, _ := procIsIconic.Call(uintptr(hwnd))

	return desktop.Descriptor{
		Handle: h,
		Title:  windowTitle(hwnd),
		Rect: desktop.Rect{
			X:      int(r.Left),
			Y:      int(r.Top),
			Width:  int(r.Right - r.Left),
			Height: int(r.Bottom - r.Top),
		},
		PID:         int(pid),
		ProcessPath: processPath(pid),
		State: desktop.State{
			TopLevel:  root == uintptr(hwnd) && owner == 0,
			Visible:   windows.IsWindowVisible(hwnd),
			Minimized: iconic != 0,
		},
	}
}

func windowTitle(hwnd windows.HWND) string {
	buf := make([]uint16, 512)
	n, err := windows.GetWindowText(hwnd, &buf[0], int32(len(buf)))
	if err != nil || n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// processPath returns "" for processes we may not query, such as elevated
// ones; callers treat that as no process identity.
func processPath(pid uint32) string {
	if pid == 0 {
		return ""
	}
	proc, err := windows.OpenProcess(processQueryLimitedInformation, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(proc)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(proc, 0, &buf[0], &size); err != nil {
		return ""
	}
	return windows.UTF16ToString(buf[:size])
}

// Foreground returns the foreground window, or 0 when none has focus.
func (b *WindowsBackend) Foreground(ctx context.Context) (desktop.Handle, error) {
	return desktop.Handle(windows.GetForegroundWindow()), nil
}

// Screen returns the primary display and its work area.
func (b *WindowsBackend) Screen(ctx context.Context) (Screen, error) {
	cx, _, _ := procGetSystemMetrics.Call(smCxScreen)
	cy, _, _ := procGetSystemMetrics.Call(smCyScreen)
	if cx == 0 || cy == 0 {
		return Screen{}, errors.New("GetSystemMetrics returned an empty screen")
	}
	bounds := desktop.Rect{Width: int(cx), Height: int(cy)}

	usable := bounds
	var wa winRect
	if ret, _, _ := procSystemParametersInfoW.Call(spiGetWorkArea, 0, uintptr(unsafe.Pointer(&wa)), 0); ret != 0 {
		usable = desktop.Rect{
			X:      int(wa.Left),
			Y:      int(wa.Top),
			Width:  int(wa.Right - wa.Left),
			Height: int(wa.Bottom - wa.Top),
		}
	}
	return Screen{Bounds: bounds, Usable: usable}, nil
}

// MoveResize moves and resizes a window without changing its z-order.
func (b *WindowsBackend) MoveResize(h desktop.Handle, bounds desktop.Rect) error {
	ret, _, err := procSetWindowPos.Call(
		uintptr(h), 0,
		uintptr(int32(bounds.X)), uintptr(int32(bounds.Y)),
		uintptr(int32(bounds.Width)), uintptr(int32(bounds.Height)),
		swpNoZOrder|swpNoActivate,
	)
	if ret == 0 {
		return fmt.Errorf("SetWindowPos %s: %w", h, err)
	}
	return nil
}

// Activate restores a minimized window and brings it to the foreground.
func (b *WindowsBackend) Activate(h desktop.Handle) error {
	if iconic, _, _ := procIsIconic.Call(uintptr(h)); iconic != 0 {
		procShowWindow.Call(uintptr(h), swRestore)
	}
	if ret, _, err := procSetForegroundWindow.Call(uintptr(h)); ret == 0 {
		return fmt.Errorf("SetForegroundWindow %s: %w", h, err)
	}
	return nil
}

// Icon extracts the large icon of the window's executable.
func (b *WindowsBackend) Icon(ctx context.Context, w desktop.Window, size int) (image.Image, error) {
	if w.ProcessPath == "" {
		return nil, errors.New("window has no process path")
	}
	pathPtr, err := windows.UTF16PtrFromString(w.ProcessPath)
	if err != nil {
		return nil, err
	}

	var hIcon uintptr
	ret, _, _ := procExtractIconExW.Call(
		uintptr(unsafe.Pointer(pathPtr)),
		0,
		uintptr(unsafe.Pointer(&hIcon)),
		0,
		1,
	)
	if ret == 0 || hIcon == 0 {
		return nil, fmt.Errorf("no icon in %s", w.ProcessPath)
	}
	defer procDestroyIcon.Call(hIcon)

	var info iconInfo
	if ret, _, _ := procGetIconInfo.Call(hIcon, uintptr(unsafe.Pointer(&info))); ret == 0 {
		return nil, errors.New("GetIconInfo failed")
	}
	defer procDeleteObject.Call(uintptr(info.hbmColor))
	defer procDeleteObject.Call(uintptr(info.hbmMask))

	return bitmapImage(info.hbmColor)
}

func bitmapImage(hBitmap syscall.Handle) (image.Image, error) {
	hdc, _, _ := procCreateCompatibleDC.Call(0)
	if hdc == 0 {
		return nil, errors.New("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(hdc)

	var bmi bitmapInfoHeader
	bmi.biSize = uint32(unsafe.Sizeof(bmi))

	// First call fills in the dimensions only.
	if ret, _, _ := procGetDIBits.Call(hdc, uintptr(hBitmap), 0, 0, 0, uintptr(unsafe.Pointer(&bmi)), 0); ret == 0 {
		return nil, errors.New("GetDIBits failed")
	}

	width := int(bmi.biWidth)
	height := int(bmi.biHeight)
	if height < 0 {
		height = -height
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("empty icon bitmap")
	}

	bmi.biBitCount = 32
	bmi.biCompression = 0 // BI_RGB
	bmi.biSizeImage = uint32(width * height * 4)
	buffer := make([]byte, bmi.biSizeImage)

	if ret, _, _ := procGetDIBits.Call(
		hdc,
		uintptr(hBitmap),
		0,
		uintptr(height),
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unsafe.Pointer(&bmi)),
		0,
	); ret == 0 {
		return nil, errors.New("GetDIBits failed")
	}

	return imageFromBGRA(buffer, width, height), nil
}

// imageFromBGRA converts a bottom-up BGRA DIB to an image.
func imageFromBGRA(data []byte, width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src := ((height-1-y)*width + x) * 4
			dst := (y*width + x) * 4
			if src+3 >= len(data) {
				continue
			}
			img.Pix[dst+0] = data[src+2]
			img.Pix[dst+1] = data[src+1]
			img.Pix[dst+2] = data[src+0]
			img.Pix[dst+3] = data[src+3]
		}
	}
	return img
}
