package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
)

// genesisSeed anchors each station's chain. The first entry links to a hash
// derived from this seed and the station id, so chains from different
// stations never share a root.
const genesisSeed = "forecourt-audit-genesis"

// GenesisHash returns the link target for a station's first entry.
func GenesisHash(stationID uuid.UUID) string {
	sum := sha256.Sum256([]byte(genesisSeed + "|" + stationID.String()))
	return hex.EncodeToString(sum[:])
}

// ComputeHash derives the entry hash from the previous link and the entry's
// canonical encoding. Any field change after the fact produces a different
// hash and breaks verification from that sequence onward.
func ComputeHash(prevHash string, e models.AuditLogEntry) string {
	fields := []string{
		prevHash,
		e.StationID.String(),
		strconv.FormatInt(e.Seq, 10),
		e.ActorID.String(),
		string(e.Action),
		e.RecordRef,
		string(e.Payload),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}
