package model

// DocumentKind names one of the four supporting documents of a claim.
// The string value is the multipart field name and the receipt label.
type DocumentKind string

const (
	DocLeaseAgreement       DocumentKind = "lease_agreement"
	DocLeaseAddendum        DocumentKind = "lease_addendum"
	DocNotificationToTenant DocumentKind = "notification_to_tenant"
	DocTenantLedger         DocumentKind = "tenant_ledger"
)

// DocumentKinds lists the document kinds in canonical order
var DocumentKinds = []DocumentKind{
	DocLeaseAgreement,
	DocLeaseAddendum,
	DocNotificationToTenant,
	DocTenantLedger,
}

// Label returns the reviewer-facing name of the document
func (k DocumentKind) Label() string {
	switch k {
	case DocLeaseAgreement:
		return "Lease Agreement"
	case DocLeaseAddendum:
		return "Lease Addendum (SDI)"
	case DocNotificationToTenant:
		return "Notification to Tenant"
	case DocTenantLedger:
		return "Tenant Ledger / Move-Out"
	default:
		return string(k)
	}
}

// Valid reports whether k is one of the four known kinds
func (k DocumentKind) Valid() bool {
	for _, known := range DocumentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Has reports whether extraction recognized the given document
func (d DocPresence) Has(k DocumentKind) bool {
	switch k {
	case DocLeaseAgreement:
		return d.LeaseAgreement
	case DocLeaseAddendum:
		return d.LeaseAddendum
	case DocNotificationToTenant:
		return d.NotificationToTenant
	case DocTenantLedger:
		return d.TenantLedger
	default:
		return false
	}
}
