package image

import (
	"fmt"
	"os"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
)

// Some boot ROMs don't read raw flash but load the second stage from a FAT
// formatted SD card instead.

// FAT32 won't fit on less than 32 MiB.
const minDiskSize = 33 * 1024 * 1024

// writeSD creates a FAT32 formatted disk image at path containing the
// storage image as /firmware.bin.
func writeSD(path string, img []byte) error {
	size := int64(len(img)) + minDiskSize
	d, err := diskfs.Create(path, size, diskfs.Raw, diskfs.SectorSizeDefault)
	if err != nil {
		return fmt.Errorf("create disk: %w", err)
	}

	fs, err := d.CreateFilesystem(disk.FilesystemSpec{
		Partition:   0,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: "BOOT",
	})
	if err != nil {
		return fmt.Errorf("create filesystem: %w", err)
	}

	f, err := fs.OpenFile("/firmware.bin", os.O_CREATE|os.O_RDWR)
	if err != nil {
		return fmt.Errorf("open firmware.bin: %w", err)
	}
	if _, err := f.Write(img); err != nil {
		return fmt.Errorf("write firmware.bin: %w", err)
	}
	return nil
}
