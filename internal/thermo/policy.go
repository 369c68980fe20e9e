package thermo

import "github.com/thermocloud/core/internal/identity"

// Policy holds the access decision functions for thermometers and readings.
//
// Every decision is a pure function of (principal, resource): staff override
// always wins, ownership is identity equality, and an unregistered
// thermometer, having no owner, is invisible to every non-staff
// principal. Services receive a Policy at construction so the rules stay in
// one place and out of the storage layer.
type Policy struct{}

// CanReadThermometer reports whether p may see t.
func (Policy) CanReadThermometer(p identity.Principal, t *Thermometer) bool {
	return isOwnerOrStaff(p, t.OwnerID)
}

// CanWriteThermometer reports whether p may update, patch or delete t.
// Same rule as read: owner or staff.
func (Policy) CanWriteThermometer(p identity.Principal, t *Thermometer) bool {
	return isOwnerOrStaff(p, t.OwnerID)
}

// CanCreateThermometer reports whether p may create thermometers.
// Any authenticated principal may; unauthenticated callers are denied.
func (Policy) CanCreateThermometer(p identity.Principal) bool {
	return !p.IsZero()
}

// CanReadReading reports whether p may see r, via the parent thermometer's
// owner.
func (Policy) CanReadReading(p identity.Principal, r *TemperatureReading) bool {
	return isOwnerOrStaff(p, r.OwnerID)
}

// isOwnerOrStaff is the shared owner-or-staff predicate. A nil owner never
// matches a principal.
func isOwnerOrStaff(p identity.Principal, ownerID *string) bool {
	if p.IsZero() {
		return false
	}
	if p.Staff {
		return true
	}
	return ownerID != nil && *ownerID == p.ID
}
