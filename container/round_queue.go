package container

import (
	"context"

	"cosmossdk.io/collections"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RoundQueueKey is the key for the RoundQueue.
// It's a pair of (round, account); entries are ordered by round, then by address.
var RoundQueueKey = collections.PairKeyCodec(
	collections.Uint64Key,
	sdk.AccAddressKey,
)

// RoundQueue indexes accounts by the round they queued a withdrawal in.
type RoundQueue struct {
	collections.KeySet[collections.Pair[uint64, sdk.AccAddress]]
}

// NewRoundQueue creates a new RoundQueue.
func NewRoundQueue(schema *collections.SchemaBuilder, prefix collections.Prefix, name string) *RoundQueue {
	return &RoundQueue{
		KeySet: collections.NewKeySet(schema, prefix, name, RoundQueueKey),
	}
}

// Enqueue records that account has a withdrawal queued in round.
func (q *RoundQueue) Enqueue(ctx context.Context, round uint16, account sdk.AccAddress) error {
	return q.Set(ctx, collections.Join(uint64(round), account))
}

// Dequeue removes the entry for account in round.
func (q *RoundQueue) Dequeue(ctx context.Context, round uint16, account sdk.AccAddress) error {
	return q.Remove(ctx, collections.Join(uint64(round), account))
}

// WalkRound iterates over the accounts queued in a single round.
func (q *RoundQueue) WalkRound(ctx context.Context, round uint16, fn func(account sdk.AccAddress) (stop bool, err error)) error {
	rng := collections.NewPrefixedPairRange[uint64, sdk.AccAddress](uint64(round))
	it, err := q.Iterate(ctx, rng)
	if err != nil {
		return err
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		key, err := it.Key()
		if err != nil {
			return err
		}
		stop, err := fn(key.K2())
		if err != nil || stop {
			return err
		}
	}
	return nil
}

// WalkDue iterates over all entries queued in a round <= maxRound.
// Iteration stops when a key with round > maxRound is encountered or when the callback
// returns stop=true or an error.
func (q *RoundQueue) WalkDue(ctx context.Context, maxRound uint16, fn func(round uint16, account sdk.AccAddress) (stop bool, err error)) error {
	it, err := q.Iterate(ctx, nil)
	if err != nil {
		return err
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		key, err := it.Key()
		if err != nil {
			return err
		}
		if key.K1() > uint64(maxRound) {
			break
		}
		stop, err := fn(uint16(key.K1()), key.K2())
		if err != nil || stop {
			return err
		}
	}
	return nil
}

// RemoveAllForAccount deletes all entries for the given account.
// Note: This is an O(N) operation where N is the total number of entries in the queue.
func (q *RoundQueue) RemoveAllForAccount(ctx context.Context, account sdk.AccAddress) error {
	var keys []collections.Pair[uint64, sdk.AccAddress]

	it, err := q.Iterate(ctx, nil)
	if err != nil {
		return err
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		key, err := it.Key()
		if err != nil {
			return err
		}
		if key.K2().Equals(account) {
			keys = append(keys, key)
		}
	}

	for _, key := range keys {
		if err := q.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
