package simulation

import (
	"fmt"
	"math/rand"
	"time"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"

	"github.com/cosmos/cosmos-sdk/types/module"
	simtypes "github.com/cosmos/cosmos-sdk/types/simulation"
	"github.com/cosmos/cosmos-sdk/x/simulation"

	"github.com/provlabs/epochvault/keeper"
	"github.com/provlabs/epochvault/types"
)

const simChainID = "epochvault-sim"

// RandomConfig controls a randomized run.
type RandomConfig struct {
	Seed  int64
	Steps int
	// MaxAdvance bounds the block time added after each operation.
	MaxAdvance time.Duration
	// Funding is the asset balance minted to every account.
	Funding sdkmath.Int
}

// DefaultRandomConfig returns a run of a few simulated weeks.
func DefaultRandomConfig() RandomConfig {
	return RandomConfig{
		Seed:       1,
		Steps:      500,
		MaxAdvance: 6 * time.Hour,
		Funding:    sdkmath.NewInt(1_000_000_000_000),
	}
}

// RandomReport counts the outcome of every operation of a randomized run.
type RandomReport struct {
	Ops     map[string]int
	NoOps   map[string]int
	Rounds  uint16
	EndTime time.Time
}

// RunRandom opens a vault with the default parameters and executes
// cfg.Steps weighted operations, checking every invariant after each one.
func RunRandom(cfg RandomConfig, logger log.Logger) (*RandomReport, error) {
	r := rand.New(rand.NewSource(cfg.Seed))
	env, err := NewEnv(r, DefaultStart, logger)
	if err != nil {
		return nil, err
	}

	msgs := keeper.NewMsgServer(env.VaultKeeper)
	if _, err := msgs.InitializeVault(env.Ctx, &types.MsgInitializeVault{
		Authority: env.Authority().String(),
		Init:      env.DefaultInitParams(),
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize vault: %w", err)
	}

	accs := env.Accounts()
	for _, acc := range accs {
		if err := env.Fund(acc.Address, cfg.Funding); err != nil {
			return nil, err
		}
	}

	simState := module.SimulationState{AppParams: make(simtypes.AppParams), Rand: r}
	ops := WeightedOperations(simState, env.VaultKeeper)
	totalWeight := 0
	for _, op := range ops {
		totalWeight += op.Weight()
	}
	if totalWeight == 0 {
		return nil, fmt.Errorf("every operation has zero weight")
	}

	report := &RandomReport{Ops: map[string]int{}, NoOps: map[string]int{}}
	invariants := keeper.AllInvariants(env.VaultKeeper)
	for i := 0; i < cfg.Steps; i++ {
		before, err := env.Ledger()
		if err != nil {
			return report, err
		}
		op := pickOperation(r, ops, totalWeight)
		opMsg, _, err := op(r, nil, env.Ctx, accs, simChainID)
		if err != nil {
			return report, fmt.Errorf("step %d (%s): %w", i, opMsg.Name, err)
		}
		if opMsg.OK {
			report.Ops[opMsg.Name]++
		} else {
			report.NoOps[opMsg.Name]++
			logger.Debug("no-op", "step", i, "msg", opMsg.Name, "comment", opMsg.Comment)
		}

		if msg, broken := invariants(env.Ctx); broken {
			return report, fmt.Errorf("step %d (%s) broke an invariant: %s", i, opMsg.Name, msg)
		}
		if err := env.CheckConservation(before); err != nil {
			return report, fmt.Errorf("step %d (%s): %w", i, opMsg.Name, err)
		}
		env.Commit()
		if cfg.MaxAdvance > 0 {
			env.Advance(time.Duration(r.Int63n(int64(cfg.MaxAdvance))))
		}
	}

	state, err := env.VaultKeeper.GetVaultState(env.Ctx)
	if err != nil {
		return report, err
	}
	report.Rounds = state.Round
	report.EndTime = env.Ctx.BlockTime()
	return report, nil
}

func pickOperation(r *rand.Rand, ops simulation.WeightedOperations, total int) simtypes.Operation {
	n := r.Intn(total)
	for _, op := range ops {
		if n < op.Weight() {
			return op.Op()
		}
		n -= op.Weight()
	}
	return ops[len(ops)-1].Op()
}
