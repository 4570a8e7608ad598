package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"

	"github.com/make-os/nostrgit/internal/discovery"
	"github.com/make-os/nostrgit/internal/eventcache"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/internal/nostrurl"
	"github.com/make-os/nostrgit/internal/relay"
)

var listCmd = &cobra.Command{
	Use:   "list <nostr-url>",
	Short: "List open proposals for a repository",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("nostr:// url is required")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		decoded, err := nostrurl.ParseURL(args[0])
		if err != nil {
			return err
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cache, err := eventcache.Open(filepath.Join(cwd, ".git", "nostrgit-cache"))
		if err != nil {
			return fmt.Errorf("open event cache: %w", err)
		}
		defer cache.Close()

		orch := &discovery.Orchestrator{Net: &relay.Client{}, Cache: cache, Relays: decoded.Relays, Log: log}
		ctx := context.Background()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Proposal", "Status", "Subject", "Age"})

		for coord := range decoded.Coordinates {
			ref, err := orch.Resolve(ctx, coord, decoded.Relays)
			if err != nil {
				return err
			}
			for _, p := range ref.Proposals {
				t.AppendRow(proposalRow(p))
			}
		}
		t.Render()
		return nil
	},
}

func proposalRow(p *discovery.Proposal) table.Row {
	status := "open"
	if p.Status != nil {
		switch p.Status.Kind {
		case eventmodel.KindStatusApplied:
			status = "applied"
		case eventmodel.KindStatusClosed:
			status = "closed"
		case eventmodel.KindStatusDraft:
			status = "draft"
		}
	}

	subject := ""
	age := ""
	if len(p.Chain) > 0 {
		root := p.Chain[0]
		subject = root.Tags.Value(eventmodel.TagSubject)
		age = humanize.Time(time.Unix(root.CreatedAt, 0))
	}

	id := p.RootID
	if len(id) > 8 {
		id = id[:8]
	}
	return table.Row{id, status, subject, age}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
