package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Number is a decimal the backend may encode either as a JSON number or as
// a quoted string ("5.50").
type Number float64

// UnmarshalJSON accepts numbers, numeric strings and null.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("gateway: number %q: %w", s, err)
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Float returns the value as float64.
func (n Number) Float() float64 { return float64(n) }

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp tolerates the RFC3339 and SQL datetime layouts the backend emits.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON parses the supported layouts; null and "" become zero.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("gateway: unsupported timestamp %q", s)
}

// MarshalJSON writes RFC3339 or null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// Item is an approvable submission. Deposit, redemption and withdrawal rows
// share one shape; fields not relevant to a kind stay zero.
type Item struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	NamaUser string `json:"nama_user,omitempty"`
	Status   string `json:"status"`

	JenisSampah string `json:"jenis_sampah,omitempty"`
	BeratKg     Number `json:"berat_kg,omitempty"`
	PoinPending int    `json:"poin_pending,omitempty"`
	PoinDidapat int    `json:"poin_didapat,omitempty"`

	ProdukID      int64  `json:"produk_id,omitempty"`
	NamaProduk    string `json:"nama_produk,omitempty"`
	Jumlah        int    `json:"jumlah,omitempty"`
	PoinDigunakan int    `json:"poin_digunakan,omitempty"`

	JumlahPenarikan     Number `json:"jumlah_penarikan,omitempty"`
	NamaBank            string `json:"nama_bank,omitempty"`
	NomorRekening       string `json:"nomor_rekening,omitempty"`
	NamaPemilikRekening string `json:"nama_pemilik_rekening,omitempty"`

	CatatanAdmin    string    `json:"catatan_admin,omitempty"`
	AlasanPenolakan string    `json:"alasan_penolakan,omitempty"`
	CreatedAt       Timestamp `json:"created_at"`
	UpdatedAt       Timestamp `json:"updated_at"`
}

// Overview holds the dashboard counters.
type Overview struct {
	TotalUsers         int    `json:"total_users"`
	TotalDeposits      int    `json:"total_deposits"`
	TotalWasteKg       Number `json:"total_waste_kg"`
	TotalPointsIssued  int    `json:"total_points_issued"`
	PendingDeposits    int    `json:"pending_deposits"`
	PendingRedemptions int    `json:"pending_redemptions"`
	PendingWithdrawals int    `json:"pending_withdrawals"`
	TotalWithdrawn     Number `json:"total_withdrawn"`
}

// Record is a content entity kept as loosely typed JSON; the console passes
// the backend's fields through untouched.
type Record map[string]any

// ID returns the record identifier rendered as a string.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// Notification is a user-facing message created through the backend.
type Notification struct {
	UserID     int64  `json:"user_id" validate:"required,gt=0"`
	Judul      string `json:"judul" validate:"required,max=150"`
	Pesan      string `json:"pesan" validate:"required"`
	Tipe       string `json:"tipe" validate:"required,oneof=info success warning error"`
	RelatedID  string `json:"related_id,omitempty"`
	RelatedRef string `json:"related_type,omitempty"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse is the normalized backend auth payload.
type LoginResponse struct {
	Token       string          `json:"token"`
	User        json.RawMessage `json:"user"`
	Role        string          `json:"role"`
	RoleData    json.RawMessage `json:"role_data"`
	Permissions []string        `json:"permissions"`
}

// File marks a payload field as a binary upload; its presence switches the
// request to multipart.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Payload is a request body. Values of type File or *File are sent as
// multipart parts; everything else is JSON or form-encoded.
type Payload map[string]any

func (p Payload) hasFile() bool {
	for _, v := range p {
		switch f := v.(type) {
		case File:
			return true
		case *File:
			if f != nil {
				return true
			}
		}
	}
	return false
}
