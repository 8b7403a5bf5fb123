package blkproc

import (
	"os"

	"golang.org/x/sys/unix"
)

// DeviceBlockSize probes f's underlying device sector size via the
// BLKSSZGET ioctl, for callers that want WithDeviceBlockSize to match the
// real output device's alignment instead of picking a size by hand. It
// only makes sense when f is a block device or a file living on one;
// regular files on most filesystems report back through the same ioctl
// relayed to their backing device.
func DeviceBlockSize(f *os.File) (uint32, error) {
	sz, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKSSZGET)
	if err != nil {
		return 0, err
	}
	return uint32(sz), nil
}
