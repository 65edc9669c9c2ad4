package adapter

import (
	"fmt"

	"github.com/sergev/fluxcore/geometry"
	"github.com/sergev/fluxcore/hfe"
	"github.com/spf13/cobra"
)

// convertHost holds the --host geometry hint for raw sector images whose
// size alone is ambiguous (e.g. 819200 bytes is 800K PC, Ensoniq, Kaypro
// or UKNC depending on the host that formatted it).
var convertHost string

var convertCmd = &cobra.Command{
	Use:   "convert SRC.EXT DEST.EXT",
	Short: "Convert between image formats",
	Long: `Convert between image formats.
Reads contents of the SRC.EXT file and writes it to DEST.EXT file.
Format of floppy image is defined by extension.
USB adapter is not used.
Supported image formats:
    *.adf          - Amiga Disk File
    *.fdi          - PC-98 FDI image
    *.hfe          - HxC Floppy Emulator
    *.img or *.ima - raw binary contents of the entire disk
    *.jvc or *.dsk - Jeff Vavasour Coco/Dragon image
    *.sdu          - SABDU image
    *.vdk          - PC-Dragon emulator image`,
	// TODO: bkd        - BK-0010/0011M Disk image
	// TODO: cp2        - Central Point Software's Copy-II-PC
	// TODO: dcf        - Disk Copy Fast utility
	// TODO: epl        - EPLCopy utility
	// TODO: imd        - Dave Dunfield's ImageDisk utility
	// TODO: mfm        - low-level MFM encoded bit stream
	// TODO: pdi        - Upland's PlanetPress
	// TODO: pri        - PCE Raw Image
	// TODO: psi        - PCE Sector Image
	// TODO: scp        - SuperCard Pro low-level raw magnetic flux transitions
	// TODO: td0        - Teledisk

	Args: cobra.ExactArgs(2),
	// Override PersistentPreRun to skip USB adapter initialization
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Do nothing - convert command doesn't need USB adapter
	},
	Run: func(cmd *cobra.Command, args []string) {
		srcFilename := args[0]
		destFilename := args[1]

		host, err := geometry.ParseHost(convertHost)
		if err != nil {
			cobra.CheckErr(err)
		}

		// Read source file. A raw sector image with a host hint goes
		// through that host's geometry template list; everything else
		// dispatches by extension as usual.
		var disk *hfe.Disk
		if host != geometry.HostGeneric && hfe.DetectImageFormat(srcFilename) == hfe.ImageFormatIMG {
			disk, err = hfe.ReadIMGHost(srcFilename, host)
		} else {
			disk, err = hfe.Read(srcFilename)
		}
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read file %s: %w", srcFilename, err))
		}

		// Write destination file
		err = hfe.Write(destFilename, disk)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write file %s: %w", destFilename, err))
		}

		fmt.Printf("Successfully converted %s to %s\n", srcFilename, destFilename)
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertHost, "host", "",
		"geometry hint for raw .img/.ima files (akai, gem, casio, dec, ensoniq, fluke,\nkaypro, memotech, msx, nascom, pc98, pc_dos, st, ti99, trdos, uknc)")
	rootCmd.AddCommand(convertCmd)
}
