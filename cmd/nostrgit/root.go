package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/make-os/nostrgit/pkgs/cmdhelper"
	"github.com/make-os/nostrgit/pkgs/logger"
)

var log logger.Logger

// rootCmd is the nostrgit command; the remote-helper protocol itself
// lives in the separate git-remote-nostr binary (spec.md §0), this one
// is the interactive front-end git never invokes directly.
var rootCmd = &cobra.Command{
	Use:   "nostrgit",
	Short: "Push and pull git repositories over a nostr-like relay network",
	Long: `nostrgit is the interactive front-end for git repositories hosted as
signed relay events rather than on a single git server. Day-to-day push
and fetch go through git itself via the nostr:// remote; this command
handles the parts git has no concept of: announcing a repository,
registering your signing key, and listing outstanding proposals.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		l := logger.NewLogrus()
		if v, _ := cmd.Flags().GetBool("debug"); v {
			l.SetToDebug()
		}
		log = l
		color.NoColor = !isatty.IsTerminal(os.Stdout.Fd())
	},
}

func init() {
	rootCmd.PersistentFlags().String("gitbin", "git", "Path to the git executable")
	rootCmd.PersistentFlags().StringSlice("relay", nil, "Relay url to use (repeatable); send uses it only when the nostr url names no relays")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable verbose logging")
	viper.BindPFlag("gitbin", rootCmd.PersistentFlags().Lookup("gitbin"))
	viper.BindPFlag("relay", rootCmd.PersistentFlags().Lookup("relay"))

	help := cmdhelper.NewCmdHelper(rootCmd)
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), help.Render().String())
	})
}

// Execute runs the root command, exiting non-zero on error like the
// teacher's cmd.Execute.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
