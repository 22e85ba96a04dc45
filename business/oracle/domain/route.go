package domain

import "github.com/ethereum/go-ethereum/common"

// MaxRouteHops is the hop budget for multi-hop routing.
const MaxRouteHops = 3

// Route is an ordered sequence of pool addresses connecting a source token
// to a destination token. Walking it hop by hop, reorienting each pool price
// to the direction of travel and multiplying yields the end-to-end price.
//
// An empty route means either "same token" (price 1) or "no path found"
// (price 0); callers distinguish the two by comparing source and destination
// beforehand.
type Route []common.Address

// IsEmpty reports whether the route has no hops.
func (r Route) IsEmpty() bool {
	return len(r) == 0
}

// Strings returns the hop addresses in hex, for logging.
func (r Route) Strings() []string {
	out := make([]string, len(r))
	for i, addr := range r {
		out[i] = addr.Hex()
	}
	return out
}
