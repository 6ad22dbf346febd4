package keeper

import (
	"context"

	"cosmossdk.io/math"
)

// SetRoundPricePerShare exposes setRoundPricePerShare to tests.
func (k Keeper) SetRoundPricePerShare(ctx context.Context, round uint16, pps math.Int) error {
	return k.setRoundPricePerShare(ctx, round, pps)
}
