package adapter

import (
	"fmt"

	"github.com/sergev/fluxcore/image"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify FILE.EXT",
	Short: "Self-check a disk image by re-verifying every track against itself",
	Long: `Verify reads FILE.EXT and, for every cylinder and side it holds, decodes
the stored bitcell stream back into sectors and confirms it matches what
was encoded, the same check VerifyTrack performs on a track just written
to real hardware. It catches a corrupt or truncated image file without
needing a USB adapter attached.`,
	Args: cobra.ExactArgs(1),
	// Override PersistentPreRun to skip USB adapter initialization
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Do nothing - verify command doesn't need USB adapter
	},
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		d := image.NewDiskImage(4096)
		if err := d.Open(filename); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read file %s: %w", filename, err))
		}

		disk := d.Disk()
		if !disk.MustVerify() {
			disk.InitVerifyOptions()
		}

		bad := 0
		for cyl, track := range disk.Tracks {
			for head, bits := range [][]byte{track.Side0, track.Side1} {
				if len(bits) == 0 {
					continue
				}
				if err := disk.VerifyTrack(cyl, head, bits); err != nil {
					fmt.Printf("cyl %d side %d: %v\n", cyl, head, err)
					bad++
				}
			}
		}

		if bad > 0 {
			cobra.CheckErr(fmt.Errorf("%d track(s) failed verification", bad))
		}
		fmt.Printf("%s: all tracks verified clean\n", filename)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
