package simulation

import (
	"fmt"
	"io"
	"maps"
	"math/rand"
	"slices"
	"time"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"

	simtypes "github.com/cosmos/cosmos-sdk/types/simulation"
	"gopkg.in/yaml.v3"

	"github.com/provlabs/epochvault/keeper"
	"github.com/provlabs/epochvault/types"
)

// Scenario is a scripted sequence of vault operations.
type Scenario struct {
	Name  string            `yaml:"name"`
	Seed  int64             `yaml:"seed"`
	Start time.Time         `yaml:"start"`
	Vault *VaultConfig      `yaml:"vault,omitempty"`
	Fund  map[string]string `yaml:"fund,omitempty"`
	Steps []Step            `yaml:"steps"`
}

// VaultConfig overrides the default vault parameters. Amounts are decimal
// strings in base units.
type VaultConfig struct {
	Cap                string  `yaml:"cap,omitempty"`
	MinimumSupply      string  `yaml:"minimum_supply,omitempty"`
	Decimals           *uint32 `yaml:"decimals,omitempty"`
	PerformanceFee     *uint64 `yaml:"performance_fee,omitempty"`
	ManagementFee      *uint64 `yaml:"management_fee,omitempty"`
	LoanTermLength     *uint64 `yaml:"loan_term_length,omitempty"`
	OptionPurchaseFreq *uint64 `yaml:"option_purchase_freq,omitempty"`
	LoanPCT            *uint32 `yaml:"loan_pct,omitempty"`
	OptionPCT          *uint32 `yaml:"option_pct,omitempty"`
}

// Step is a single scenario action. Fail marks a step that must be rejected.
type Step struct {
	Action   string        `yaml:"action"`
	Account  string        `yaml:"account,omitempty"`
	Creditor string        `yaml:"creditor,omitempty"`
	Amount   string        `yaml:"amount,omitempty"`
	Max      bool          `yaml:"max,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"`
	Param    string        `yaml:"param,omitempty"`
	Value    string        `yaml:"value,omitempty"`
	Fail     bool          `yaml:"fail,omitempty"`
	Expect   *Expectation  `yaml:"expect,omitempty"`
}

// Expectation asserts on the vault after a step.
type Expectation struct {
	Round         *uint16           `yaml:"round,omitempty"`
	PricePerShare string            `yaml:"price_per_share,omitempty"`
	LockedAmount  string            `yaml:"locked_amount,omitempty"`
	TotalPending  string            `yaml:"total_pending,omitempty"`
	Balances      map[string]string `yaml:"balances,omitempty"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index  int    `yaml:"index"`
	Action string `yaml:"action"`
	Error  string `yaml:"error,omitempty"`
}

// Report is the outcome of a scenario run.
type Report struct {
	Name  string                   `yaml:"name"`
	Steps []StepResult             `yaml:"steps"`
	Vault types.QueryVaultResponse `yaml:"-"`
}

const (
	ActionDeposit           = "deposit"
	ActionWithdrawInstantly = "withdraw_instantly"
	ActionRedeem            = "redeem"
	ActionInitiateWithdraw  = "initiate_withdraw"
	ActionCompleteWithdraw  = "complete_withdraw"
	ActionRoll              = "roll"
	ActionBuyOption         = "buy_option"
	ActionPayOptionYield    = "pay_option_yield"
	ActionReturnLentFunds   = "return_lent_funds"
	ActionSetParam          = "set_param"
	ActionAdvance           = "advance"
	ActionCheck             = "check"
)

// ParseScenario decodes a YAML scenario.
func ParseScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if sc.Start.IsZero() {
		sc.Start = DefaultStart
	}
	return &sc, nil
}

// Runner executes a scenario against a fresh environment.
type Runner struct {
	env   *Env
	msgs  types.MsgServer
	named map[string]simtypes.Account
	free  []simtypes.Account
}

// Run executes sc and returns its report. A step whose outcome differs from
// its Fail flag, a failed expectation or a broken invariant stops the run
// with an error.
func Run(sc *Scenario, logger log.Logger) (*Report, error) {
	env, err := NewEnv(rand.New(rand.NewSource(sc.Seed)), sc.Start, logger)
	if err != nil {
		return nil, err
	}
	rn := &Runner{
		env:  env,
		msgs: keeper.NewMsgServer(env.VaultKeeper),
		named: map[string]simtypes.Account{
			"owner":         env.Owner,
			"keeper":        env.Keeper,
			"borrower":      env.Borrower,
			"option_seller": env.OptionSeller,
			"fee_recipient": env.FeeRecipient,
		},
		free: env.Depositors,
	}

	init, err := rn.initParams(sc.Vault)
	if err != nil {
		return nil, err
	}
	_, err = rn.msgs.InitializeVault(env.Ctx, &types.MsgInitializeVault{Authority: env.Authority().String(), Init: init})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault: %w", err)
	}

	for _, name := range slices.Sorted(maps.Keys(sc.Fund)) {
		amount := sc.Fund[name]
		acc, err := rn.account(name)
		if err != nil {
			return nil, err
		}
		amt, err := parseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("fund %s: %w", name, err)
		}
		if err := env.Fund(acc.Address, amt); err != nil {
			return nil, err
		}
	}

	report := &Report{Name: sc.Name}
	invariants := keeper.AllInvariants(env.VaultKeeper)
	for i, step := range sc.Steps {
		before, err := env.Ledger()
		if err != nil {
			return report, err
		}
		stepErr := rn.apply(step)
		res := StepResult{Index: i, Action: step.Action}
		if stepErr != nil {
			res.Error = stepErr.Error()
		}
		report.Steps = append(report.Steps, res)
		logger.Debug("scenario step", "index", i, "action", step.Action, "error", res.Error)

		if step.Fail && stepErr == nil {
			return report, fmt.Errorf("step %d (%s) succeeded but was expected to fail", i, step.Action)
		}
		if !step.Fail && stepErr != nil {
			return report, fmt.Errorf("step %d (%s): %w", i, step.Action, stepErr)
		}
		if msg, broken := invariants(env.Ctx); broken {
			return report, fmt.Errorf("step %d (%s) broke an invariant: %s", i, step.Action, msg)
		}
		if err := env.CheckConservation(before); err != nil {
			return report, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
		if step.Expect != nil {
			if err := rn.check(*step.Expect); err != nil {
				return report, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
			}
		}
		env.Commit()
	}

	vault, err := keeper.NewQueryServer(env.VaultKeeper).Vault(env.Ctx, &types.QueryVaultRequest{})
	if err != nil {
		return report, err
	}
	report.Vault = *vault
	return report, nil
}

func (rn *Runner) initParams(cfg *VaultConfig) (types.InitParams, error) {
	init := rn.env.DefaultInitParams()
	if cfg == nil {
		return init, nil
	}
	if cfg.Cap != "" {
		amt, err := parseAmount(cfg.Cap)
		if err != nil {
			return init, fmt.Errorf("cap: %w", err)
		}
		init.Params.Cap = amt
	}
	if cfg.MinimumSupply != "" {
		amt, err := parseAmount(cfg.MinimumSupply)
		if err != nil {
			return init, fmt.Errorf("minimum supply: %w", err)
		}
		init.Params.MinimumSupply = amt
	}
	if cfg.Decimals != nil {
		init.Params.Decimals = *cfg.Decimals
	}
	if cfg.PerformanceFee != nil {
		init.Fees.PerformanceFee = *cfg.PerformanceFee
	}
	if cfg.ManagementFee != nil {
		init.Fees.ManagementFee = *cfg.ManagementFee
	}
	if cfg.LoanTermLength != nil {
		init.LoanTermLength = *cfg.LoanTermLength
	}
	if cfg.OptionPurchaseFreq != nil {
		init.OptionPurchaseFreq = *cfg.OptionPurchaseFreq
	}
	if cfg.LoanPCT != nil {
		init.LoanAllocationPCT = *cfg.LoanPCT
	}
	if cfg.OptionPCT != nil {
		init.OptionAllocationPCT = *cfg.OptionPCT
	}
	return init, nil
}

// account resolves a scenario account name. Role names map to the role
// accounts; any other name takes the next free depositor.
func (rn *Runner) account(name string) (simtypes.Account, error) {
	if acc, ok := rn.named[name]; ok {
		return acc, nil
	}
	if len(rn.free) == 0 {
		return simtypes.Account{}, fmt.Errorf("no depositor left for %q", name)
	}
	acc := rn.free[0]
	rn.free = rn.free[1:]
	rn.named[name] = acc
	return acc, nil
}

func (rn *Runner) apply(step Step) error {
	ctx := rn.env.Ctx

	switch step.Action {
	case ActionAdvance:
		rn.env.Advance(step.Duration)
		return nil
	case ActionCheck:
		return nil
	}

	name := step.Account
	if name == "" {
		name = defaultAccount(step.Action)
	}
	if name == "" {
		return fmt.Errorf("action %q requires an account", step.Action)
	}
	acc, err := rn.account(name)
	if err != nil {
		return err
	}
	sender := acc.Address.String()

	var amount sdkmath.Int
	if step.Amount != "" {
		if amount, err = parseAmount(step.Amount); err != nil {
			return err
		}
	}

	switch step.Action {
	case ActionDeposit:
		msg := &types.MsgDeposit{Sender: sender, Amount: amount}
		if step.Creditor != "" {
			creditor, err := rn.account(step.Creditor)
			if err != nil {
				return err
			}
			msg.Creditor = creditor.Address.String()
		}
		_, err = rn.msgs.Deposit(ctx, msg)
	case ActionWithdrawInstantly:
		_, err = rn.msgs.WithdrawInstantly(ctx, &types.MsgWithdrawInstantly{Sender: sender, Amount: amount})
	case ActionRedeem:
		_, err = rn.msgs.Redeem(ctx, &types.MsgRedeem{Sender: sender, Shares: amount, Max: step.Max})
	case ActionInitiateWithdraw:
		_, err = rn.msgs.InitiateWithdraw(ctx, &types.MsgInitiateWithdraw{Sender: sender, Shares: amount})
	case ActionCompleteWithdraw:
		_, err = rn.msgs.CompleteWithdraw(ctx, &types.MsgCompleteWithdraw{Sender: sender})
	case ActionRoll:
		_, err = rn.msgs.RollToNextRound(ctx, &types.MsgRollToNextRound{Sender: sender})
	case ActionBuyOption:
		_, err = rn.msgs.BuyOption(ctx, &types.MsgBuyOption{Sender: sender})
	case ActionPayOptionYield:
		_, err = rn.msgs.PayOptionYield(ctx, &types.MsgPayOptionYield{Sender: sender, Amount: amount})
	case ActionReturnLentFunds:
		_, err = rn.msgs.ReturnLentFunds(ctx, &types.MsgReturnLentFunds{Sender: sender, Amount: amount})
	case ActionSetParam:
		value := step.Value
		if role, ok := rn.named[value]; ok {
			value = role.Address.String()
		}
		_, err = rn.msgs.UpdateParam(ctx, &types.MsgUpdateParam{Sender: sender, Param: types.Param(step.Param), Value: value})
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return err
}

func (rn *Runner) check(exp Expectation) error {
	k := rn.env.VaultKeeper
	ctx := rn.env.Ctx

	state, err := k.GetVaultState(ctx)
	if err != nil {
		return err
	}
	if exp.Round != nil && state.Round != *exp.Round {
		return fmt.Errorf("round: expected %d, got %d", *exp.Round, state.Round)
	}
	if exp.PricePerShare != "" {
		want, err := parseAmount(exp.PricePerShare)
		if err != nil {
			return err
		}
		got, found, err := k.GetRoundPricePerShare(ctx, state.Round-1)
		if err != nil {
			return err
		}
		if !found || !got.Equal(want) {
			return fmt.Errorf("price per share of round %d: expected %s, got %s", state.Round-1, want, got)
		}
	}
	if err := expectAmount("locked amount", exp.LockedAmount, state.LockedAmount); err != nil {
		return err
	}
	if err := expectAmount("total pending", exp.TotalPending, state.TotalPending); err != nil {
		return err
	}

	params, err := k.GetVaultParams(ctx)
	if err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(exp.Balances)) {
		want := exp.Balances[name]
		acc, err := rn.account(name)
		if err != nil {
			return err
		}
		got := k.BankKeeper.GetBalance(ctx, acc.Address, params.Asset).Amount
		if err := expectAmount("balance of "+name, want, got); err != nil {
			return err
		}
	}
	return nil
}

func defaultAccount(action string) string {
	switch action {
	case ActionRoll, ActionBuyOption:
		return "keeper"
	case ActionPayOptionYield:
		return "option_seller"
	case ActionReturnLentFunds:
		return "borrower"
	case ActionSetParam:
		return "owner"
	default:
		return ""
	}
}

func expectAmount(name, want string, got sdkmath.Int) error {
	if want == "" {
		return nil
	}
	amt, err := parseAmount(want)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !amt.Equal(got) {
		return fmt.Errorf("%s: expected %s, got %s", name, amt, got)
	}
	return nil
}

func parseAmount(s string) (sdkmath.Int, error) {
	amt, ok := sdkmath.NewIntFromString(s)
	if !ok || amt.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("invalid amount %q", s)
	}
	return amt, nil
}

// String summarizes the report.
func (r *Report) String() string {
	return fmt.Sprintf("%s: %d steps, round %d, locked %s", r.Name, len(r.Steps), r.Vault.State.Round, r.Vault.State.LockedAmount)
}
