package epochvault

import (
	"encoding/json"

	"cosmossdk.io/errors"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/provlabs/epochvault/keeper"
	"github.com/provlabs/epochvault/types"
)

// DecodeGenesis parses a JSON genesis document.
func DecodeGenesis(bz json.RawMessage) (*types.GenesisState, error) {
	var genState types.GenesisState
	if err := json.Unmarshal(bz, &genState); err != nil {
		return nil, err
	}
	return &genState, nil
}

// EncodeGenesis renders genState as indented JSON.
func EncodeGenesis(genState *types.GenesisState) (json.RawMessage, error) {
	return json.MarshalIndent(genState, "", "  ")
}

// InitGenesis initializes the module's state from a JSON genesis document.
func InitGenesis(ctx sdk.Context, k *keeper.Keeper, bz json.RawMessage) error {
	genState, err := DecodeGenesis(bz)
	if err != nil {
		return errors.Wrap(err, "failed to decode the genesis state")
	}
	if err := genState.Validate(); err != nil {
		return errors.Wrap(err, "invalid genesis state")
	}
	k.InitGenesis(ctx, genState)
	return nil
}

// ExportGenesis returns the module's exported genesis as JSON.
func ExportGenesis(ctx sdk.Context, k *keeper.Keeper) (json.RawMessage, error) {
	bz, err := EncodeGenesis(k.ExportGenesis(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode the genesis state")
	}
	return bz, nil
}
