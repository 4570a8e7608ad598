package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/make-os/nostrgit/internal/authoring"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/internal/gitrepo"
	"github.com/make-os/nostrgit/internal/localsigner"
	"github.com/make-os/nostrgit/internal/nostrurl"
	"github.com/make-os/nostrgit/internal/relay"
)

var initCmd = &cobra.Command{
	Use:   "init <identifier>",
	Short: "Announce a new repository on the relay network",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("repository identifier is required")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		identifier := args[0]
		clones, _ := cmd.Flags().GetStringSlice("clone")
		maintainers, _ := cmd.Flags().GetStringSlice("maintainer")
		graspHosts, _ := cmd.Flags().GetStringSlice("grasp")
		authorNpub, _ := cmd.Flags().GetString("npub")
		relays := viper.GetStringSlice("relay")
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		web, _ := cmd.Flags().GetStringSlice("web")
		blossoms, _ := cmd.Flags().GetStringSlice("blossom")
		rootCommit, _ := cmd.Flags().GetString("euc")

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		git, err := gitrepo.Open(viper.GetString("gitbin"), cwd)
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		signer, err := localsigner.FromGitConfig(func(key string) (string, bool, error) {
			return git.ConfigGet("global", key)
		})
		if err != nil {
			return err
		}

		if authorNpub == "" {
			pub, err := signer.PublicKey(cmd.Context())
			if err != nil {
				return err
			}
			authorNpub, err = nostrurl.EncodeNpub(pub)
			if err != nil {
				return err
			}
		}

		opts := authoring.InitOptions{
			Identifier:  identifier,
			CloneURLs:   clones,
			Relays:      relays,
			Maintainers: maintainers,
			GraspHosts:  graspHosts,
			AuthorNpub:  authorNpub,
			Name:        name,
			Description: description,
			Web:         web,
			Blossoms:    blossoms,
			RootCommit:  rootCommit,
		}
		pub, err := signer.PublicKey(cmd.Context())
		if err != nil {
			return err
		}
		ann := authoring.BuildAnnouncement(opts, pub)

		ctx, cancel := context.WithTimeout(context.Background(), authoring.GraspProvisionTimeout+5*time.Second)
		defer cancel()

		if err := eventmodel.Finalize(ann, func(digest []byte) ([]byte, error) {
			return signer.Sign(ctx, digest)
		}); err != nil {
			return fmt.Errorf("sign announcement: %w", err)
		}

		net := &relay.Client{}
		var graspCloneURLs []string
		for _, host := range graspHosts {
			graspCloneURLs = append(graspCloneURLs, authoring.GraspCloneURL(host, authorNpub, identifier))
		}
		if err := authoring.Init(ctx, git, net, relays, ann, graspCloneURLs, authoring.GraspProvisionTimeout); err != nil {
			return fmt.Errorf("publish announcement: %w", err)
		}

		naddr, err := nostrurl.EncodeNaddr(identifier, pub, int(ann.Kind), relays)
		if err != nil {
			return err
		}
		fmt.Printf("Announced %s. Add a remote with:\n\n  git remote add nostr nostr://%s\n", identifier, naddr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	f := initCmd.Flags()
	f.StringSlice("clone", nil, "A clone URL hint for the new repository (repeatable)")
	f.StringSlice("maintainer", nil, "A co-maintainer's hex pubkey (repeatable)")
	f.StringSlice("grasp", nil, "A grasp host to provision a bare repo on and derive a clone url from (repeatable)")
	f.String("npub", "", "Override the author npub embedded in derived grasp clone urls")
	f.String("name", "", "A short display name for the repository")
	f.String("description", "", "A free-text description of the repository")
	f.StringSlice("web", nil, "A homepage/project-page URL (repeatable)")
	f.StringSlice("blossom", nil, "A blossom media server URL to advertise (repeatable)")
	f.String("euc", "", "The repository's earliest unique commit, for fork recognition")
}
