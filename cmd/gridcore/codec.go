package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/chalkan3-sloth/gridcore/valuecodec"
)

func newCodecCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "codec",
		Short: "Round-trip an int32 value buffer and report its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := valuecodec.NewWriter(valuecodec.KindInt32, count)
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				if err := w.WriteInt32(int32(i - count/2)); err != nil {
					return err
				}
				if i%3 == 0 {
					w.SetNull(i)
				}
			}
			buf := w.Bytes()

			r, err := valuecodec.NewReader(buf)
			if err != nil {
				return err
			}
			read, nulls := 0, 0
			for {
				_, isNull, st := r.ReadInt32Nullable()
				if st != valuecodec.OK {
					break
				}
				read++
				if isNull {
					nulls++
				}
			}
			if read != count {
				return fmt.Errorf("round-trip mismatch: wrote %d, read %d", count, read)
			}
			pterm.Success.Printfln("%d values, %d nulls, %d bytes on the wire (%.2f bytes/value)",
				read, nulls, len(buf), float64(len(buf))/float64(read))
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1000, "values to encode")
	return cmd
}
