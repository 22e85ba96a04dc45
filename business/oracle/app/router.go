package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/foliotrack/chainprice/business/oracle/domain"
	"github.com/foliotrack/chainprice/internal/asset"
)

// findPoolFor asks the resolver for a pool between a and b and returns the
// first non-zero address.
func (o *Oracle) findPoolFor(ctx context.Context, a, b *asset.Asset) (common.Address, bool, error) {
	pools, err := o.resolver.GetPool(ctx, a, b)
	if err != nil {
		return common.Address{}, false, err
	}
	for _, pool := range pools {
		if pool != (common.Address{}) {
			return pool, true, nil
		}
	}
	return common.Address{}, false, nil
}

// FindRoute calculates the pools to jump through to go from one token to the
// other, routing through the configured bridge assets when no direct pool
// exists. The returned route has at most MaxRouteHops entries; an empty route
// means "same token" or "no path", which the caller tells apart by comparing
// the tokens first.
//
// This is not a shortest-path search: bridges are probed in fixed order and
// the first one whose first hop exists is committed to, even if its second
// hop then fails. Only a single link-asset/second-bridge combination is ever
// tried for three-hop routes.
func (o *Oracle) FindRoute(ctx context.Context, fromToken, toToken *asset.Asset) (domain.Route, error) {
	// When one side already is a bridge asset a direct pool may exist; try
	// that before iterating bridges.
	if o.isRoutingAsset(fromToken) || o.isRoutingAsset(toToken) {
		pool, ok, err := o.findPoolFor(ctx, fromToken, toToken)
		if err != nil {
			return nil, err
		}
		if ok {
			return domain.Route{pool}, nil
		}
	}

	if fromToken.Equals(toToken) {
		return nil, nil
	}

	// Try one bridge between the two:
	// fromToken <first hop> bridge <second hop> toToken
	var (
		firstPool common.Address
		linkAsset *asset.Asset
	)
	for _, bridge := range o.routingAssets {
		if bridge.Equals(fromToken) {
			continue
		}
		pool, ok, err := o.findPoolFor(ctx, fromToken, bridge)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		firstPool = pool
		linkAsset = bridge

		second, ok, err := o.findPoolFor(ctx, toToken, bridge)
		if err != nil {
			return nil, err
		}
		if ok {
			return domain.Route{firstPool, second}, nil
		}
		// The first successful first hop is committed to; other bridges are
		// not probed for the first hop.
		break
	}

	if linkAsset == nil {
		return nil, nil
	}

	// Two more jumps are needed:
	// fromToken <1st> linkAsset <2nd> secondLink <3rd> toToken
	// Find the tail first: toToken against any bridge but itself.
	var (
		tailPool   common.Address
		secondLink *asset.Asset
	)
	for _, bridge := range o.routingAssets {
		if bridge.Equals(toToken) {
			continue
		}
		pool, ok, err := o.findPoolFor(ctx, toToken, bridge)
		if err != nil {
			return nil, err
		}
		if ok {
			tailPool = pool
			secondLink = bridge
			break
		}
	}

	if secondLink == nil {
		return nil, nil
	}

	// Close the route with the middle hop linkAsset <-> secondLink. No other
	// bridge combination is tried if this one does not exist.
	middle, ok, err := o.findPoolFor(ctx, linkAsset, secondLink)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return domain.Route{firstPool, middle, tailPool}, nil
}

func (o *Oracle) isRoutingAsset(a *asset.Asset) bool {
	for _, bridge := range o.routingAssets {
		if bridge.Equals(a) {
			return true
		}
	}
	return false
}
