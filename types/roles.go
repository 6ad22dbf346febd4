package types

import (
	"cosmossdk.io/errors"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Role names an identity allowed to trigger a class of vault operations.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleKeeper       Role = "keeper"
	RoleBorrower     Role = "borrower"
	RoleOptionSeller Role = "option_seller"
)

// Roles are the bech32 addresses bound to each vault role.
type Roles struct {
	Owner        string `json:"owner"`
	Keeper       string `json:"keeper"`
	Borrower     string `json:"borrower"`
	OptionSeller string `json:"option_seller"`
	FeeRecipient string `json:"fee_recipient"`
}

// Address returns the address bound to role.
func (r Roles) Address(role Role) string {
	switch role {
	case RoleOwner:
		return r.Owner
	case RoleKeeper:
		return r.Keeper
	case RoleBorrower:
		return r.Borrower
	case RoleOptionSeller:
		return r.OptionSeller
	default:
		return ""
	}
}

// Authorize returns ErrUnauthorized unless caller holds role.
func (r Roles) Authorize(role Role, caller sdk.AccAddress) error {
	return Authorize(role, r.Address(role), caller)
}

// Validate ensures every role is bound to a valid address that is not the
// vault custody account.
func (r Roles) Validate() error {
	for _, role := range []struct{ name, addr string }{
		{string(RoleOwner), r.Owner},
		{string(RoleKeeper), r.Keeper},
		{string(RoleBorrower), r.Borrower},
		{string(RoleOptionSeller), r.OptionSeller},
		{"fee_recipient", r.FeeRecipient},
	} {
		if err := ValidateRoleAddress(role.name, role.addr); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRoleAddress ensures addr is a valid bech32 address usable as a role.
func ValidateRoleAddress(name, addr string) error {
	acc, err := sdk.AccAddressFromBech32(addr)
	if err != nil {
		return errors.Wrapf(ErrInvalidParams, "invalid %s address %q: %s", name, addr, err)
	}
	if IsModuleAddress(acc) {
		return errors.Wrapf(ErrInvalidParams, "%s cannot be the vault account", name)
	}
	return nil
}

// Authorize returns ErrUnauthorized unless caller is the expected address.
func Authorize(role Role, expected string, caller sdk.AccAddress) error {
	if caller.Empty() {
		return errors.Wrapf(ErrUnauthorized, "%s: empty caller", role)
	}
	want, err := sdk.AccAddressFromBech32(expected)
	if err != nil {
		return errors.Wrapf(ErrUnauthorized, "%s role not configured", role)
	}
	if !want.Equals(caller) {
		return errors.Wrapf(ErrUnauthorized, "%s is not the %s", caller, role)
	}
	return nil
}
