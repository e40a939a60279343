package credential

import (
	"encoding/json"
	"time"
)

// Record es la metadata serializada que vive en el backend bajo la key
// derivada. Su presencia en el store es la prueba de validez; expiry se
// chequea además en lectura por si el driver no expira nativamente.
type Record struct {
	ClientID    string    `json:"client_id"`
	Subject     string    `json:"sub,omitempty"`
	Scope       string    `json:"scope"`
	RedirectURI string    `json:"redirect_uri,omitempty"`
	ParentKey   string    `json:"parent_key,omitempty"` // key del refresh que originó este access token
	IssuedAt    time.Time `json:"issued_at"`
	TTL         int64     `json:"ttl"` // segundos
}

// ExpiresAt retorna el instante de expiración.
func (r Record) ExpiresAt() time.Time {
	return r.IssuedAt.Add(time.Duration(r.TTL) * time.Second)
}

// ExpiredAt indica si el record está vencido en now.
func (r Record) ExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt())
}

func (r Record) encode() (string, error) {
	b, err := json.Marshal(r)
	return string(b), err
}

func decodeRecord(raw string) (Record, error) {
	var r Record
	err := json.Unmarshal([]byte(raw), &r)
	return r, err
}
