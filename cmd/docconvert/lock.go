package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docconvert/internal/client"
	"github.com/pdiddy/docconvert/internal/lock"
)

var lockCmd = &cobra.Command{
	Use:   "lock <file>",
	Short: "Password-protect a PDF",
	Long: `Lock encrypts a PDF with AES-256. Opening the result requires the given
password, and printing, copying and editing are denied. The output defaults
to <name>-locked.pdf next to the input.`,
	Args: cobra.ExactArgs(1),
	RunE: runLock,
}

func init() {
	lockCmd.Flags().String("password", "", "password required to open the PDF")
	lockCmd.Flags().String("out", "", "output file (default: <name>-locked.pdf)")
	lockCmd.Flags().String("server", "", "lock through a running server at this URL")
	_ = lockCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(lockCmd)
}

func runLock(cmd *cobra.Command, args []string) error {
	src := args[0]
	password, _ := cmd.Flags().GetString("password")
	dst, _ := cmd.Flags().GetString("out")
	if dst == "" {
		dst = filepath.Join(filepath.Dir(src), lock.LockedName(src))
	}

	var fetch func(io.Writer) error
	if serverURL, _ := cmd.Flags().GetString("server"); serverURL != "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c := client.New(serverURL)
		c.APIKey = cfg.Server.APIKey
		fetch = func(out io.Writer) error {
			_, err := c.Lock(cmd.Context(), src, password, out)
			return err
		}
	} else {
		fetch = func(out io.Writer) error {
			in, err := os.Open(src)
			if err != nil {
				return fmt.Errorf("opening %s: %w", src, err)
			}
			defer in.Close()
			return lock.Lock(in, out, password)
		}
	}

	if err := download(dst, fetch); err != nil {
		return fmt.Errorf("locking %s: %w", src, err)
	}
	fmt.Fprintf(os.Stderr, "Locked %s -> %s\n", src, dst)
	return nil
}
