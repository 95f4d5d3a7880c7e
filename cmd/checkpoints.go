package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/heyimsteve/nichescout/internal/checkpoint"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspect and manage saved research checkpoints",
}

// -- checkpoints list --

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved checkpoints",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open checkpoint store")
		}
		defer st.Close() //nolint:errcheck

		infos, err := st.List(ctx)
		if err != nil {
			return eris.Wrap(err, "checkpoints list")
		}
		if len(infos) == 0 {
			fmt.Fprintln(os.Stderr, "No checkpoints found.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tNICHE\tSTAGE\tFINAL\tUPDATED")
		for _, info := range infos {
			final := ""
			if info.Finalized {
				final = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				info.Key, info.Niche, info.Stage, final, info.UpdatedAt.UTC().Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

// -- checkpoints clear --

var checkpointsClearCmd = &cobra.Command{
	Use:   "clear <key>",
	Short: "Delete the checkpoint for a resume key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open checkpoint store")
		}
		defer st.Close() //nolint:errcheck

		key := checkpoint.SanitizeKey(args[0])
		if err := st.Clear(ctx, key); err != nil {
			return eris.Wrap(err, "checkpoints clear")
		}
		fmt.Fprintf(os.Stderr, "Cleared checkpoint %q.\n", key)
		return nil
	},
}

// -- checkpoints import --

var checkpointsImportCmd = &cobra.Command{
	Use:   "import <artifact.json>",
	Short: "Load a recovery artifact back into the checkpoint store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open checkpoint store")
		}
		defer st.Close() //nolint:errcheck

		key, err := checkpoint.ImportArtifact(ctx, st, args[0])
		if err != nil {
			return eris.Wrap(err, "checkpoints import")
		}
		fmt.Fprintf(os.Stderr, "Imported artifact under key %q. Resume with: nichescout research <niche> --resume %s\n", key, key)
		return nil
	},
}

func init() {
	checkpointsCmd.AddCommand(checkpointsListCmd)
	checkpointsCmd.AddCommand(checkpointsClearCmd)
	checkpointsCmd.AddCommand(checkpointsImportCmd)
	rootCmd.AddCommand(checkpointsCmd)
}
