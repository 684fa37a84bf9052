// Package netconf loads the static seed list shared by every node. The
// config file holds one seed per non-empty line, either host:port or
// host,port; lines starting with # are comments and malformed lines are
// skipped.
package netconf

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"gossipnet/pkg/identity"
)

// Seed is one configured seed endpoint.
type Seed struct {
	Host string
	Port int
}

// ID returns the seed's canonical host:port identifier.
func (s Seed) ID() string {
	return identity.PeerID(s.Host, s.Port)
}

// Load parses the seed list at path.
func Load(path string) ([]Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "netconf: open %s", path)
	}
	defer f.Close()

	var seeds []Seed
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		host, portStr, ok := splitLine(line)
		if !ok {
			continue
		}
		port, err := strconv.Atoi(strings.TrimSpace(portStr))
		if err != nil {
			continue
		}
		seeds = append(seeds, Seed{Host: strings.TrimSpace(host), Port: port})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "netconf: read %s", path)
	}
	return seeds, nil
}

func splitLine(line string) (string, string, bool) {
	if i := strings.Index(line, ","); i >= 0 {
		return line[:i], line[i+1:], true
	}
	if i := strings.LastIndex(line, ":"); i >= 0 {
		return line[:i], line[i+1:], true
	}
	return "", "", false
}
