package redis

import (
	"strconv"
	"strings"
	"time"
)

const (
	keyNamespace      = "matreq"
	idempotencyPrefix = "idempotency"
	catalogPrefix     = "catalog"
	reminderPrefix    = "cutoff_reminder"
	lockPrefix        = "lock"
)

// Key joins parts under the service namespace, skipping blank parts.
func Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// IdempotencyKey returns a namespaced key for idempotency storage.
func (c *Client) IdempotencyKey(scope, id string) string {
	return Key(idempotencyPrefix, scope, id)
}

// CatalogVersionKey holds the counter bumped on every catalog upload.
func (c *Client) CatalogVersionKey() string {
	return Key(catalogPrefix, "version")
}

// CatalogSnapshotKey addresses the cached catalog for one version.
func (c *Client) CatalogSnapshotKey(version int64) string {
	return Key(catalogPrefix, "snapshot", strconv.FormatInt(version, 10))
}

// CutOffReminderKey dedupes reminders per table and cut-off instant.
func (c *Client) CutOffReminderKey(tableID string, cutOff time.Time) string {
	return Key(reminderPrefix, tableID, strconv.FormatInt(cutOff.Unix(), 10))
}

func (c *Client) LockKey(name string) string {
	return Key(lockPrefix, name)
}
