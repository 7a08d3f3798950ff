// Package vulntype defines the closed set of vulnerability classes this
// scanner recognizes, along with their fixed CWE/MITRE ATT&CK/OWASP
// mappings used throughout report generation.
package vulntype

// VulnType identifies a vulnerability class. The canonical classes are
// represented by their string value; anything outside the canonical set is
// still a valid VulnType ("Other" in the original taxonomy) and simply maps
// to empty CWE/ATT&CK/OWASP lists.
type VulnType string

const (
	LFI  VulnType = "LFI"
	RCE  VulnType = "RCE"
	SSRF VulnType = "SSRF"
	AFO  VulnType = "AFO"
	SQLI VulnType = "SQLI"
	XSS  VulnType = "XSS"
	IDOR VulnType = "IDOR"
)

// FromString parses a vulnerability type name, passing through unrecognized
// values verbatim (the "Other" case in the canonical taxonomy).
func FromString(s string) VulnType {
	switch s {
	case "LFI", "RCE", "SSRF", "AFO", "SQLI", "XSS", "IDOR":
		return VulnType(s)
	default:
		return VulnType(s)
	}
}

// IsCanonical reports whether v is one of the seven fixed classes.
func (v VulnType) IsCanonical() bool {
	switch v {
	case LFI, RCE, SSRF, AFO, SQLI, XSS, IDOR:
		return true
	default:
		return false
	}
}

func (v VulnType) String() string { return string(v) }

// CWEIDs returns the Common Weakness Enumeration IDs associated with v.
func (v VulnType) CWEIDs() []string {
	switch v {
	case SQLI:
		return []string{"CWE-89"}
	case XSS:
		return []string{"CWE-79", "CWE-80"}
	case RCE:
		return []string{"CWE-77", "CWE-78", "CWE-94"}
	case LFI:
		return []string{"CWE-22", "CWE-98"}
	case SSRF:
		return []string{"CWE-918"}
	case AFO:
		return []string{"CWE-22", "CWE-73"}
	case IDOR:
		return []string{"CWE-639", "CWE-284"}
	default:
		return nil
	}
}

// MitreAttackIDs returns the MITRE ATT&CK technique IDs associated with v.
func (v VulnType) MitreAttackIDs() []string {
	switch v {
	case SQLI:
		return []string{"T1190"}
	case XSS:
		return []string{"T1190", "T1185"}
	case RCE:
		return []string{"T1190", "T1059"}
	case LFI:
		return []string{"T1083"}
	case SSRF:
		return []string{"T1090"}
	case AFO:
		return []string{"T1083", "T1005"}
	case IDOR:
		return []string{"T1190"}
	default:
		return nil
	}
}

// OWASPCategories returns the OWASP Top 10 (2021) categories associated with v.
func (v VulnType) OWASPCategories() []string {
	switch v {
	case SQLI, XSS, RCE:
		return []string{"A03:2021-Injection"}
	case LFI, AFO, IDOR:
		return []string{"A01:2021-Broken Access Control"}
	case SSRF:
		return []string{"A10:2021-Server-Side Request Forgery"}
	default:
		return nil
	}
}
