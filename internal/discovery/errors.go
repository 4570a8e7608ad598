package discovery

import (
	"fmt"

	"github.com/make-os/nostrgit/internal/nostrurl"
)

func errAnnouncementNotFound(seed nostrurl.RepoCoordinate) error {
	return fmt.Errorf("no announcement found for %s/%s", seed.Author, seed.Identifier)
}
