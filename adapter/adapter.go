package adapter

import (
	"go.bug.st/serial/enumerator"

	"github.com/sergev/fluxcore/hfe"
)

// FloppyAdapter defines the interface for floppy disk adapters
type FloppyAdapter interface {
	// PrintStatus prints adapter status information to stdout
	PrintStatus()
	// Read reads numberOfTracks cylinders (both heads) from the floppy disk
	// and returns them as a Disk image.
	Read(numberOfTracks int) (*hfe.Disk, error)
	// Write writes numberOfTracks cylinders of disk to the floppy disk.
	Write(disk *hfe.Disk, numberOfTracks int) error
	// Erase overwrites numberOfTracks cylinders (both heads) with an erase pattern.
	Erase(numberOfTracks int) error
}

// NewClientFunc is a function type that creates a new adapter client
type NewClientFunc func(portDetails *enumerator.PortDetails) (FloppyAdapter, error)

