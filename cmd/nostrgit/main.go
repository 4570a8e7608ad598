// Command nostrgit is the interactive front-end documented as an
// external collaborator in spec.md §6: it supplies the core with a
// signer, relay set and repository coordinates, but the core never
// blocks on its terminal directly (the Prompter capability mediates
// that). The day-to-day push/fetch path runs entirely through
// git-remote-nostr; this binary only handles init/login/list/send.
package main

func main() {
	Execute()
}
