package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autohub/media/internal/storage"
)

// Coordinator deletes an asset and its derived variant siblings across
// whichever tiers hold it. Every operation is best-effort and idempotent:
// deleting a key that no tier holds succeeds silently.
type Coordinator struct {
	remote    storage.ObjectStore
	local     storage.ObjectStore
	opTimeout time.Duration
}

// DeleteReport summarizes a batch delete. Partial failures are reported here,
// never raised, so callers tearing down a record do not fail the primary
// operation over a storage cleanup miss.
type DeleteReport struct {
	Deleted int      `json:"deleted"`
	Failed  []string `json:"failed,omitempty"`
}

// NewCoordinator wires the tiers; remote may be disabled.
func NewCoordinator(remote, local storage.ObjectStore) *Coordinator {
	return &Coordinator{remote: remote, local: local, opTimeout: defaultOpTimeout}
}

// Delete removes the asset at keyOrURL plus its variant siblings from both
// tiers. Only a failure to delete the primary key is returned; sibling
// cleanup failures are logged and swallowed.
func (c *Coordinator) Delete(ctx context.Context, keyOrURL string) error {
	key := c.keyFrom(keyOrURL)
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidInput)
	}

	if err := c.deleteOnBoth(ctx, key); err != nil {
		return err
	}
	for _, sib := range SiblingKeys(ParseKey(key)) {
		if err := c.deleteOnBoth(ctx, sib.String()); err != nil {
			log.Warn().Err(err).Str("key", key).Str("sibling", sib.String()).Msg("media: sibling cleanup failed")
		}
	}
	return nil
}

// DeleteMany removes a batch of assets and their siblings, using the remote
// tier's batch delete. The report counts inputs whose primary key was
// removed; inputs whose primary failed on some tier are listed in Failed.
func (c *Coordinator) DeleteMany(ctx context.Context, keysOrURLs []string) DeleteReport {
	primaries := make([]string, 0, len(keysOrURLs))
	all := make([]string, 0, len(keysOrURLs)*4)
	for _, raw := range keysOrURLs {
		key := c.keyFrom(raw)
		if key == "" {
			continue
		}
		primaries = append(primaries, key)
		all = append(all, key)
		for _, sib := range SiblingKeys(ParseKey(key)) {
			all = append(all, sib.String())
		}
	}
	if len(primaries) == 0 {
		return DeleteReport{}
	}

	failedSet := make(map[string]bool)
	if c.remote != nil && c.remote.Enabled() {
		for _, k := range c.remote.DeleteMany(ctx, all) {
			failedSet[k] = true
		}
	}
	for _, k := range c.local.DeleteMany(ctx, all) {
		failedSet[k] = true
	}

	var report DeleteReport
	for _, key := range primaries {
		if failedSet[key] {
			report.Failed = append(report.Failed, key)
			continue
		}
		report.Deleted++
	}
	return report
}

// deleteOnBoth removes key from both tiers. A tier failing is an error only
// for the tier that actually errored; a disabled remote is skipped.
func (c *Coordinator) deleteOnBoth(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if c.remote != nil && c.remote.Enabled() {
		if err := c.remote.Delete(ctx, key); err != nil {
			return err
		}
	}
	return c.local.Delete(ctx, key)
}

// keyFrom accepts either a bare key or a public URL from one of the tiers and
// reduces it to the normalized key.
func (c *Coordinator) keyFrom(keyOrURL string) string {
	s := keyOrURL
	for _, store := range []storage.ObjectStore{c.remote, c.local} {
		if store == nil {
			continue
		}
		if base := store.PublicURL(""); base != "/" && base != "" && strings.HasPrefix(s, base) {
			s = strings.TrimPrefix(s, base)
			break
		}
	}
	return Normalize(s)
}
