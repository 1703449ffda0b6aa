package gateway

import "net/url"

// Resource describes one backend collection.
type Resource struct {
	// Name is the stable identifier used in metrics, fixtures and console routes.
	Name string
	// Path is the collection path relative to the backend base URL.
	Path string
	// Keys are the envelope keys the backend may nest the collection under.
	Keys []string
}

// Backend collections.
var (
	Deposits = Resource{
		Name: "deposits",
		Path: "/admin/penyetoran-sampah",
		Keys: []string{"penyetoran_sampah", "penyetoran", "deposits"},
	}
	Redemptions = Resource{
		Name: "redemptions",
		Path: "/admin/penukaran-produk",
		Keys: []string{"penukaran_produk", "penukaran", "redemptions"},
	}
	Withdrawals = Resource{
		Name: "withdrawals",
		Path: "/admin/penarikan-tunai",
		Keys: []string{"penarikan_tunai", "penarikan", "withdrawals"},
	}
	Products = Resource{
		Name: "products",
		Path: "/admin/produk",
		Keys: []string{"produk", "products"},
	}
	Articles = Resource{
		Name: "articles",
		Path: "/admin/artikel",
		Keys: []string{"artikel", "articles"},
	}
	Badges = Resource{
		Name: "badges",
		Path: "/admin/badges",
		Keys: []string{"badges"},
	}
	Schedules = Resource{
		Name: "schedules",
		Path: "/admin/jadwal-penyetoran",
		Keys: []string{"jadwal_penyetoran", "jadwal", "schedules"},
	}
	WastePrices = Resource{
		Name: "waste-prices",
		Path: "/admin/jenis-sampah",
		Keys: []string{"jenis_sampah", "waste_types"},
	}
	Notifications = Resource{
		Name: "notifications",
		Path: "/admin/notifications",
		Keys: []string{"notifications", "notifikasi"},
	}
	Users = Resource{
		Name: "users",
		Path: "/admin/users",
		Keys: []string{"users", "pengguna"},
	}
	Dashboard = Resource{
		Name: "overview",
		Path: "/admin/dashboard/overview",
		Keys: []string{"overview", "stats"},
	}
)

func (r Resource) item(id string) string {
	return r.Path + "/" + url.PathEscape(id)
}
