package main

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenMixerProject/AES50/pkg/frame"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aes50dump [file]",
		Short: "Decode and print AES50 frame headers",
		Long: `aes50dump reads raw frame bytes from a file (or stdin when no file
is given) and prints the decoded header fields of each frame.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDump,
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDump(cmd *cobra.Command, args []string) error {
	in := os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	buf := make([]byte, frame.FrameSize)
	for n := 0; ; n++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			if err == io.EOF {
				return nil
			}
			if err == io.ErrUnexpectedEOF {
				return fmt.Errorf("trailing %d bytes are not a whole frame", frame.FrameSize)
			}
			return err
		}
		f, err := frame.Parse(buf)
		if err != nil {
			return err
		}
		printFrame(cmd.OutOrStdout(), n, f)
	}
}

func printFrame(w io.Writer, n int, f *frame.Frame) {
	rate := "unknown"
	if f.RateKnown {
		rate = f.Rate.String()
	}
	fmt.Fprintf(w, "frame %d\n", n)
	fmt.Fprintf(w, "  dst          %s\n", net.HardwareAddr(f.Dst[:]))
	fmt.Fprintf(w, "  src          %s\n", net.HardwareAddr(f.Src[:]))
	fmt.Fprintf(w, "  format type  0x%02x (assm=%v)\n", f.FormatType, f.Assm)
	fmt.Fprintf(w, "  audio format 0x%02x (%s)\n", f.AudioFormat, rate)
	fmt.Fprintf(w, "  checksum     0x%02x\n", f.Checksum)
}
