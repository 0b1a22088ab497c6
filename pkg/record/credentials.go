package record

import "strings"

// ColumnAPISecret is the column holding the API secret in the keys sheet.
const ColumnAPISecret = "apiSecret"

// Credential is the publicId/secret pair used for Basic authentication.
type Credential struct {
	PublicID string
	Secret   string
}

// CredentialTable maps trimmed public IDs to credentials.
// It is built once before dispatch and only read afterwards, so it needs no locking.
type CredentialTable struct {
	byID map[string]Credential
}

// NewCredentialTable folds key rows into a lookup table.
// Rows lacking either column are skipped; later rows win on duplicate IDs.
func NewCredentialTable(rows []Record) *CredentialTable {
	t := &CredentialTable{byID: make(map[string]Credential, len(rows))}
	for _, row := range rows {
		id, okID := row.Lookup(ColumnPublicID)
		secret, okSecret := row.Lookup(ColumnAPISecret)
		id = strings.TrimSpace(id)
		secret = strings.TrimSpace(secret)
		if !okID || !okSecret || id == "" || secret == "" {
			continue
		}
		t.byID[id] = Credential{PublicID: id, Secret: secret}
	}
	return t
}

// NewCredentialTableFromMap builds a table from an id -> secret map.
func NewCredentialTableFromMap(secrets map[string]string) *CredentialTable {
	t := &CredentialTable{byID: make(map[string]Credential, len(secrets))}
	for id, secret := range secrets {
		id = strings.TrimSpace(id)
		t.byID[id] = Credential{PublicID: id, Secret: strings.TrimSpace(secret)}
	}
	return t
}

// Lookup returns the credential for a public ID.
func (t *CredentialTable) Lookup(publicID string) (Credential, bool) {
	if t == nil {
		return Credential{}, false
	}
	c, ok := t.byID[strings.TrimSpace(publicID)]
	return c, ok
}

// Len returns the number of credentials in the table.
func (t *CredentialTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byID)
}
