package kryoflux

import "fmt"

// Erase always returns an error and touches no track: the KryoFlux is a
// read/capture device and has no erase command.
func (c *Client) Erase(numberOfTracks int) error {
	return fmt.Errorf("Erase is not supported for KryoFlux adapter")
}
