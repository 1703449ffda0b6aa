// Package content manages the catalogue and editorial entities of the
// waste bank: products, articles, badges, collection schedules, waste
// prices and user notifications.
package content

import (
	"sort"
	"strings"

	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/rbac"
)

// ProductInput is the editable shape of a redeemable product.
type ProductInput struct {
	Nama      string         `json:"nama" validate:"required,max=255"`
	Deskripsi string         `json:"deskripsi,omitempty" validate:"max=2000"`
	HargaPoin gateway.Number `json:"harga_poin" validate:"gt=0"`
	Stok      gateway.Number `json:"stok" validate:"gte=0"`
	Kategori  string         `json:"kategori,omitempty" validate:"max=100"`
	Status    string         `json:"status,omitempty" validate:"omitempty,oneof=tersedia habis nonaktif"`
}

// ArticleInput is the editable shape of an article.
type ArticleInput struct {
	Judul    string `json:"judul" validate:"required,max=255"`
	Konten   string `json:"konten" validate:"required"`
	Kategori string `json:"kategori,omitempty" validate:"max=100"`
	Penulis  string `json:"penulis,omitempty" validate:"max=150"`
	Status   string `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
}

// BadgeInput is the editable shape of an achievement badge.
type BadgeInput struct {
	Nama        string         `json:"nama" validate:"required,max=150"`
	Deskripsi   string         `json:"deskripsi,omitempty" validate:"max=1000"`
	Tipe        string         `json:"tipe" validate:"required,oneof=poin setor kombinasi"`
	SyaratPoin  gateway.Number `json:"syarat_poin" validate:"gte=0"`
	SyaratSetor gateway.Number `json:"syarat_setor" validate:"gte=0"`
	RewardPoin  gateway.Number `json:"reward_poin" validate:"gte=0"`
}

// ScheduleInput is the editable shape of a collection schedule.
type ScheduleInput struct {
	Hari         string `json:"hari" validate:"required,oneof=Senin Selasa Rabu Kamis Jumat Sabtu Minggu"`
	WaktuMulai   string `json:"waktu_mulai" validate:"required,datetime=15:04"`
	WaktuSelesai string `json:"waktu_selesai" validate:"required,datetime=15:04"`
	Lokasi       string `json:"lokasi" validate:"required,max=255"`
	Status       string `json:"status,omitempty" validate:"omitempty,oneof=aktif nonaktif"`
}

// WastePriceInput is the editable shape of a waste type and its price.
type WastePriceInput struct {
	NamaJenis  string         `json:"nama_jenis" validate:"required,max=150"`
	Kategori   string         `json:"kategori,omitempty" validate:"max=100"`
	HargaPerKg gateway.Number `json:"harga_per_kg" validate:"gt=0"`
	PoinPerKg  gateway.Number `json:"poin_per_kg" validate:"gte=0"`
	Deskripsi  string         `json:"deskripsi,omitempty" validate:"max=1000"`
}

// NotificationInput is a notification composed by an admin.
type NotificationInput struct {
	UserID gateway.Number `json:"user_id" validate:"gt=0"`
	Judul  string         `json:"judul" validate:"required,max=150"`
	Pesan  string         `json:"pesan" validate:"required"`
	Tipe   string         `json:"tipe" validate:"required,oneof=info success warning error"`
}

// Notification converts the input to the gateway shape.
func (n NotificationInput) Notification() gateway.Notification {
	return gateway.Notification{UserID: int64(n.UserID), Judul: n.Judul, Pesan: n.Pesan, Tipe: n.Tipe}
}

type spec struct {
	resource   gateway.Resource
	permission string
	label      string
	// image is the multipart field an upload is sent under; empty means none.
	image string
	// createOnly entities cannot be edited or deleted.
	createOnly bool
	input      func() any
}

var specs = map[string]spec{
	gateway.Products.Name: {
		resource: gateway.Products, permission: rbac.PermManageProducts, label: "Produk", image: "foto",
		input: func() any { return &ProductInput{} },
	},
	gateway.Articles.Name: {
		resource: gateway.Articles, permission: rbac.PermManageContent, label: "Artikel", image: "foto_cover",
		input: func() any { return &ArticleInput{} },
	},
	gateway.Badges.Name: {
		resource: gateway.Badges, permission: rbac.PermManageContent, label: "Badge", image: "icon",
		input: func() any { return &BadgeInput{} },
	},
	gateway.Schedules.Name: {
		resource: gateway.Schedules, permission: rbac.PermManageSchedules, label: "Jadwal",
		input: func() any { return &ScheduleInput{} },
	},
	gateway.WastePrices.Name: {
		resource: gateway.WastePrices, permission: rbac.PermManageWastePrices, label: "Jenis sampah",
		input: func() any { return &WastePriceInput{} },
	},
	gateway.Notifications.Name: {
		resource: gateway.Notifications, permission: rbac.PermSendNotifications, label: "Notifikasi", createOnly: true,
		input: func() any { return &NotificationInput{} },
	},
}

// Resources lists the managed resource names in a stable order.
func Resources() []string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Permission returns the token that gates name, or "" when unknown.
func Permission(name string) string {
	return specs[strings.ToLower(name)].permission
}

func lookup(name string) (spec, error) {
	s, ok := specs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return spec{}, unknown(name)
	}
	return s, nil
}

// Submission is a create or update request. Fields are decoded into the
// resource's input type; unknown fields are dropped.
type Submission struct {
	Fields map[string]any
	Image  *gateway.File
}

// Listing is one resource list.
type Listing struct {
	Resource string           `json:"resource"`
	Items    []gateway.Record `json:"items"`
	// Degraded marks fixture data served while the backend is unreachable.
	Degraded bool `json:"degraded"`
	// Stale is set when the list could not be re-fetched after a mutation.
	Stale bool `json:"stale,omitempty"`
}

// Mutation is the result of a create or update.
type Mutation struct {
	Record gateway.Record `json:"record"`
	List   Listing        `json:"list"`
}
