package decider

import (
	"sort"

	"github.com/AnuragDani/gateway-decider/internal/models"
)

// OrdNub returns the gateways sorted and without duplicates
func OrdNub(gws []models.Gateway) []models.Gateway {
	out := make([]models.Gateway, 0, len(gws))
	seen := make(map[models.Gateway]bool, len(gws))
	for _, gw := range gws {
		if !seen[gw] {
			seen[gw] = true
			out = append(out, gw)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FunctionalGateways is the candidate gateway set paired with the MGAs that
// back it. The gateway list is always the projection of the MGA list; the
// two narrowing operations keep that true.
type FunctionalGateways struct {
	gateways []models.Gateway
	accounts []models.MerchantGatewayAccount
}

// SetGatewaysAndAccounts seeds the set from the merchant's MGAs
func (f *FunctionalGateways) SetGatewaysAndAccounts(accounts []models.MerchantGatewayAccount) {
	f.accounts = append([]models.MerchantGatewayAccount(nil), accounts...)
	projection := make([]models.Gateway, 0, len(accounts))
	for _, mga := range accounts {
		projection = append(projection, mga.Gateway)
	}
	f.gateways = OrdNub(projection)
}

// NarrowByGateway keeps the gateways satisfying keep and drops the MGAs of
// every removed gateway
func (f *FunctionalGateways) NarrowByGateway(keep func(models.Gateway) bool) {
	gateways := f.gateways[:0:0]
	kept := make(map[models.Gateway]bool, len(f.gateways))
	for _, gw := range f.gateways {
		if keep(gw) {
			gateways = append(gateways, gw)
			kept[gw] = true
		}
	}
	accounts := f.accounts[:0:0]
	for _, mga := range f.accounts {
		if kept[mga.Gateway] {
			accounts = append(accounts, mga)
		}
	}
	f.gateways, f.accounts = gateways, accounts
}

// NarrowByAccount keeps the MGAs satisfying keep and drops every gateway
// left without an MGA
func (f *FunctionalGateways) NarrowByAccount(keep func(models.MerchantGatewayAccount) bool) {
	accounts := f.accounts[:0:0]
	backed := make(map[models.Gateway]bool, len(f.gateways))
	for _, mga := range f.accounts {
		if keep(mga) {
			accounts = append(accounts, mga)
			backed[mga.Gateway] = true
		}
	}
	gateways := f.gateways[:0:0]
	for _, gw := range f.gateways {
		if backed[gw] {
			gateways = append(gateways, gw)
		}
	}
	f.gateways, f.accounts = gateways, accounts
}

// Keep narrows to the gateways present in allowed
func (f *FunctionalGateways) Keep(allowed []models.Gateway) {
	set := gatewaySet(allowed)
	f.NarrowByGateway(func(gw models.Gateway) bool { return set[gw] })
}

// Remove drops the gateways present in denied
func (f *FunctionalGateways) Remove(denied []models.Gateway) {
	set := gatewaySet(denied)
	f.NarrowByGateway(func(gw models.Gateway) bool { return !set[gw] })
}

func (f *FunctionalGateways) Gateways() []models.Gateway {
	return append([]models.Gateway(nil), f.gateways...)
}

func (f *FunctionalGateways) Accounts() []models.MerchantGatewayAccount {
	return append([]models.MerchantGatewayAccount(nil), f.accounts...)
}

// AccountsFor returns the MGAs backing gw
func (f *FunctionalGateways) AccountsFor(gw models.Gateway) []models.MerchantGatewayAccount {
	var out []models.MerchantGatewayAccount
	for _, mga := range f.accounts {
		if mga.Gateway == gw {
			out = append(out, mga)
		}
	}
	return out
}

func (f *FunctionalGateways) Len() int {
	return len(f.gateways)
}

func (f *FunctionalGateways) Contains(gw models.Gateway) bool {
	for _, g := range f.gateways {
		if g == gw {
			return true
		}
	}
	return false
}

// snapshot is used to restore the set when a narrowing must fall back
type snapshot struct {
	gateways []models.Gateway
	accounts []models.MerchantGatewayAccount
}

func (f *FunctionalGateways) snapshot() snapshot {
	return snapshot{gateways: f.Gateways(), accounts: f.Accounts()}
}

func (f *FunctionalGateways) restore(s snapshot) {
	f.gateways, f.accounts = s.gateways, s.accounts
}

func gatewaySet(gws []models.Gateway) map[models.Gateway]bool {
	set := make(map[models.Gateway]bool, len(gws))
	for _, gw := range gws {
		set[gw] = true
	}
	return set
}
