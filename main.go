// Command floppy reads, writes and converts floppy disk images through
// USB flux adapters (Greaseweazle, SuperCard Pro, KryoFlux).
package main

import (
	"github.com/sergev/fluxcore/adapter"
	"github.com/sergev/fluxcore/greaseweazle"
	"github.com/sergev/fluxcore/kryoflux"
	"github.com/sergev/fluxcore/supercardpro"
)

func main() {
	adapter.RegisterAdapter(greaseweazle.VendorID, greaseweazle.ProductID, greaseweazle.NewClient)
	adapter.RegisterAdapter(supercardpro.VendorID, supercardpro.ProductID, supercardpro.NewClient)
	adapter.RegisterAdapter(kryoflux.VendorID, kryoflux.ProductID, kryoflux.NewClient)

	adapter.Execute()
}
