// Package deepbook talks to the DeepBook v2 central limit order book (clob_v2) on Sui.
package deepbook

import (
	"context"
	"errors"
	"fmt"

	"deepbook-mm/sui"
)

const (
	PackageID       = "0xdee9"
	ClobModule      = "clob_v2"
	CustodianModule = "custodian_v2"
	ClockID         = "0x6"

	// DefaultPoolID is the SUI/USDC pool.
	DefaultPoolID = "0x4405b50d791fd3346754e8171aaab6bc2ed26c2c46efdd033c14b30ae507ac33"
)

var (
	packageAddr = sui.MustParseAddress(PackageID)
	clockAddr   = sui.MustParseAddress(ClockID)

	// ErrNoAccountCap is returned when the sender owns no custodian AccountCap.
	ErrNoAccountCap = errors.New("no deepbook account cap owned by sender")
)

// Pool 池子的共享对象信息与两种资产类型。
type Pool struct {
	ID                   sui.ObjectID
	InitialSharedVersion uint64
	BaseType             sui.TypeTag
	QuoteType            sui.TypeTag
}

// TypeArgs returns <Base, Quote> for clob_v2 calls.
func (p Pool) TypeArgs() []sui.TypeTag {
	return []sui.TypeTag{p.BaseType, p.QuoteType}
}

// FillEventType is the OrderFilled<Base, Quote> Move event type of this pool.
func (p Pool) FillEventType() string {
	st := sui.StructTag{
		Address:    packageAddr,
		Module:     ClobModule,
		Name:       "OrderFilled",
		TypeParams: p.TypeArgs(),
	}
	return st.String()
}

func (p Pool) arg(mutable bool) sui.ObjectArg {
	return sui.Shared(p.ID, p.InitialSharedVersion, mutable)
}

// LoadPool 读取池子对象，解析类型参数与初始共享版本。
func LoadPool(ctx context.Context, rpc *sui.Client, id sui.ObjectID) (Pool, error) {
	obj, err := rpc.GetObject(ctx, id)
	if err != nil {
		return Pool{}, fmt.Errorf("load pool: %w", err)
	}
	if obj.Owner == nil || obj.Owner.Shared == nil {
		return Pool{}, fmt.Errorf("load pool: %s is not a shared object", id)
	}
	tag, err := sui.ParseStructTag(obj.Type)
	if err != nil {
		return Pool{}, fmt.Errorf("load pool: %w", err)
	}
	if tag.Address != packageAddr || tag.Module != ClobModule || tag.Name != "Pool" || len(tag.TypeParams) != 2 {
		return Pool{}, fmt.Errorf("load pool: %s has unexpected type %s", id, obj.Type)
	}
	return Pool{
		ID:                   id,
		InitialSharedVersion: uint64(obj.Owner.Shared.InitialSharedVersion),
		BaseType:             tag.TypeParams[0],
		QuoteType:            tag.TypeParams[1],
	}, nil
}

// AccountCapType is the fully qualified custodian AccountCap type.
func AccountCapType() string {
	return sui.StructTag{Address: packageAddr, Module: CustodianModule, Name: "AccountCap"}.String()
}

// FindAccountCap returns the first AccountCap owned by owner.
func FindAccountCap(ctx context.Context, rpc *sui.Client, owner sui.Address) (sui.ObjectID, error) {
	page, err := rpc.GetOwnedObjects(ctx, owner, AccountCapType(), nil, 1)
	if err != nil {
		return sui.ObjectID{}, fmt.Errorf("find account cap: %w", err)
	}
	for _, o := range page.Data {
		if o.Data == nil {
			continue
		}
		return sui.ParseAddress(o.Data.ObjectID)
	}
	return sui.ObjectID{}, ErrNoAccountCap
}
