package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/make-os/nostrgit/internal/gitrepo"
	"github.com/make-os/nostrgit/internal/localsigner"
	"github.com/make-os/nostrgit/internal/nostrurl"
)

var loginCmd = &cobra.Command{
	Use:   "login [nsec]",
	Short: "Register a signing key for this network",
	Long: `Stores a signing key under nostr.nsec for every subsequent nostrgit
and git-remote-nostr invocation. Pass an existing bech32 nsec1... key to
import it, or omit the argument to generate a fresh one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		local, _ := cmd.Flags().GetBool("local")

		var secretHex string
		if len(args) > 0 {
			secretHex = args[0]
		} else {
			priv, err := btcec.NewPrivateKey()
			if err != nil {
				return err
			}
			secretHex = hex.EncodeToString(priv.Serialize())
		}

		signer, err := localsigner.FromSecret(secretHex)
		if err != nil {
			return fmt.Errorf("invalid nsec: %w", err)
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		git, err := gitrepo.Open(viper.GetString("gitbin"), cwd)
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		scope := "global"
		if local {
			scope = "local"
		}
		if err := git.ConfigSet(scope, localsigner.ConfigKey, secretHex); err != nil {
			return fmt.Errorf("write %s config: %w", scope, err)
		}

		pub, err := signer.PublicKey(cmd.Context())
		if err != nil {
			return err
		}
		npub, err := nostrurl.EncodeNpub(pub)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", npub)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().Bool("local", false, "Write to this repository's local config instead of global")
}
