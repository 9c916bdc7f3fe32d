package network

import (
	"math/rand/v2"
	"strings"

	"github.com/martinlindhe/base36"
)

const (
	networkIDLength = 7
	networkIDSpace  = 78364164096 // 36^7
)

// CreateNetworkID returns a random 7 character [a-z0-9] entity id.
func CreateNetworkID() string {
	id := strings.ToLower(base36.Encode(rand.Uint64N(networkIDSpace)))
	if len(id) < networkIDLength {
		id = strings.Repeat("0", networkIDLength-len(id)) + id
	}
	return id
}
