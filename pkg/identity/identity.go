// Package identity defines the canonical string forms that surface in logs
// and on the wire: peer identifiers, gossip message identifiers and hashes,
// and the dead-node report string.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// PeerID returns the canonical host:port identifier for a network endpoint.
func PeerID(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// Split parses a peer identifier back into host and port. The split is on
// the last colon, so any earlier colons stay in the host part.
func Split(peerID string) (string, int, error) {
	i := strings.LastIndex(peerID, ":")
	if i < 0 {
		return "", 0, errors.Errorf("identity: %q is not host:port", peerID)
	}
	port, err := strconv.Atoi(peerID[i+1:])
	if err != nil {
		return "", 0, errors.Wrapf(err, "identity: bad port in %q", peerID)
	}
	return peerID[:i], port, nil
}

// FormatTimestamp renders an epoch-seconds timestamp the way it appears
// inside message identifiers: the shortest decimal representation that
// round-trips the float64.
func FormatTimestamp(ts float64) string {
	return strconv.FormatFloat(ts, 'f', -1, 64)
}

// MessageID builds a gossip message identifier:
//
//	<timestamp>:<IP>:<Port>:<Msg#>
func MessageID(ts float64, ip string, port, msgNum int) string {
	return fmt.Sprintf("%s:%s:%d:%d", FormatTimestamp(ts), ip, port, msgNum)
}

// Hash returns the hex-encoded SHA-256 of the UTF-8 bytes of content. Gossip
// deduplication keys on this value.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// DeadNodeReport builds the report string emitted when a peer declares a
// neighbor dead:
//
//	Dead Node:<DeadIP>:<DeadPort>:<ReporterTimestamp>:<ReporterIP>
func DeadNodeReport(deadHost string, deadPort int, ts float64, reporterHost string) string {
	return fmt.Sprintf("Dead Node:%s:%d:%s:%s", deadHost, deadPort, FormatTimestamp(ts), reporterHost)
}
