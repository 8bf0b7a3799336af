package catalog

import "github.com/iliyamo/ticket-ledger/internal/model"

// CanManage reports whether caller may change an event's configuration:
// its organizer or the global administrator.
func CanManage(ev model.Event, caller, admin model.Identity) bool {
	if caller.IsZero() {
		return false
	}
	return caller == ev.Organizer || (!admin.IsZero() && caller == admin)
}

// CanAdmit reports whether caller may mark tickets of ev as used: the
// organizer, a registered validator, or the global administrator.
func CanAdmit(ev model.Event, validators map[model.Identity]struct{}, caller, admin model.Identity) bool {
	if CanManage(ev, caller, admin) {
		return true
	}
	_, ok := validators[caller]
	return ok && !caller.IsZero()
}
