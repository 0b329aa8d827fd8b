package catalog

import (
	"fmt"
	"math/rand"
	"strings"
)

type seedCategory struct {
	name   string
	prefix string
	subs   []string
}

var seedCategories = []seedCategory{
	{name: "Abarrotes", prefix: "AB", subs: []string{"Granos", "Pastas", "Conservas", "Aceites"}},
	{name: "Bebidas", prefix: "BE", subs: []string{"Aguas", "Bebidas", "Jugos", "Cervezas"}},
	{name: "Lácteos", prefix: "LA", subs: []string{"Leches", "Quesos", "Yogurts", "Mantequillas"}},
	{name: "Carnes", prefix: "CA", subs: []string{"Vacuno", "Pollo", "Cerdo", "Embutidos"}},
	{name: "Limpieza", prefix: "LI", subs: []string{"Detergentes", "Desinfectantes", "Papelería"}},
	{name: "Higiene", prefix: "HI", subs: []string{"Jabones", "Shampoos", "Cuidado Bucal"}},
	{name: "Congelados", prefix: "CO", subs: []string{"Verduras", "Pre-fritos", "Carnes Congeladas"}},
	{name: "Panadería", prefix: "PA", subs: []string{"Harinas", "Levaduras", "Insumos"}},
	{name: "Mascotas", prefix: "MA", subs: []string{"Perros", "Gatos", "Accesorios"}},
	{name: "Salsas", prefix: "SA", subs: []string{"Condimentos", "Salsas", "Aderezos"}},
}

var (
	seedBrands = []string{"Prov Select", "Distribuidora Central", "Calidad Master", "Ahorro Pack", "Premium Food", "Industrial Net"}
	// Common box and pack formats.
	seedPackSizes = []int{1, 6, 10, 12, 24, 48}
)

const (
	seedProductsPerCategory = 10
	seedMinPrice            = 5_000
	seedMaxPrice            = 120_000
	seedMinStock            = 100
	seedStockSpread         = 2_000
)

// SeedProducts generates the demo product pool. The same seed always yields
// the same catalog.
func SeedProducts(seed int64) []Product {
	rng := rand.New(rand.NewSource(seed))
	products := make([]Product, 0, len(seedCategories)*seedProductsPerCategory)
	for i := 1; i <= len(seedCategories)*seedProductsPerCategory; i++ {
		cat := seedCategories[(i-1)/seedProductsPerCategory]
		sub := cat.subs[rng.Intn(len(cat.subs))]
		brand := seedBrands[rng.Intn(len(seedBrands))]
		price := int64(rng.Intn(seedMaxPrice-seedMinPrice+1) + seedMinPrice)
		stock := rng.Intn(seedStockSpread) + seedMinStock
		moq := seedPackSizes[rng.Intn(len(seedPackSizes))]
		products = append(products, Product{
			ID:          fmt.Sprintf("%d", i),
			SKU:         fmt.Sprintf("%s-%s-%03d", cat.prefix, skuFragment(sub), i),
			Name:        fmt.Sprintf("%s %s #%d", sub, brand, i),
			Category:    cat.name,
			SubCategory: sub,
			Brand:       brand,
			Price:       price,
			MinOrder:    moq,
			Stock:       stock,
			Image:       fmt.Sprintf("https://picsum.photos/200/200?random=%d", i),
			Description: fmt.Sprintf("Formato mayorista para distribución. Pedido mínimo: %d unidades.", moq),
		})
	}
	return products
}

func skuFragment(sub string) string {
	r := []rune(strings.ToUpper(sub))
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

// SeedPriceLists returns the four commercial tiers.
func SeedPriceLists() []PriceList {
	return []PriceList{
		{ID: BasePriceListID, Name: "Lista Base", DiscountPercentage: 0, Color: "slate"},
		{ID: "pl-mayorista", Name: "Mayorista Gral", DiscountPercentage: 10, Color: "blue"},
		{ID: "pl-vip", Name: "VIP Gold", DiscountPercentage: 20, Color: "purple"},
		{ID: "pl-distribuidor", Name: "Distribuidor Máster", DiscountPercentage: 35, Color: "orange"},
	}
}

// SeedClients returns the demo client portfolio.
func SeedClients() []Client {
	clients := []Client{
		{ID: "C001", Name: "Juan Pérez", Company: "Supermercado El Sol", RUT: "76.123.456-7", Giro: "Venta de abarrotes al por menor", Address: "Av. Las Condes 1234, Las Condes", Email: "juan@elsol.cl", Phone: "+56 9 1111 2222", TotalSpent: 12_500_000, LastOrderDate: "2023-11-20", Status: ClientVIP, PriceListID: "pl-vip"},
		{ID: "C002", Name: "María García", Company: "Minimarket Luna", RUT: "12.456.789-0", Giro: "Minimarket y rotisería", Address: "Calle Valparaíso 456, Viña del Mar", Email: "m.garcia@luna.cl", Phone: "+56 9 2222 3333", TotalSpent: 4_200_000, LastOrderDate: "2023-11-18", Status: ClientActive, PriceListID: "pl-mayorista"},
		{ID: "C003", Name: "Carlos Ruiz", Company: "Casino Cordillera", RUT: "88.222.333-K", Giro: "Servicios de alimentación", Address: "Paseo Ahumada 78, Santiago Centro", Email: "c.ruiz@casino.cl", Phone: "+56 9 3333 4444", TotalSpent: 8_500_000, LastOrderDate: "2023-11-22", Status: ClientActive, PriceListID: "pl-distribuidor"},
		{ID: "C004", Name: "Ana Morales", Company: "Pastelería Delicias", RUT: "15.667.889-1", Giro: "Fabricación de pan y pasteles", Address: "Avenida Alemania 098, Temuco", Email: "ana.m@delicias.cl", Phone: "+56 9 4444 5555", TotalSpent: 2_100_000, LastOrderDate: "2023-11-15", Status: ClientNew, PriceListID: BasePriceListID},
		{ID: "C005", Name: "Roberto Díaz", Company: "Frutos del Norte", RUT: "77.890.123-2", Giro: "Comercialización de frutas y verduras", Address: "Prat 123, Antofagasta", Email: "r.diaz@norte.cl", Phone: "+56 9 5555 6666", TotalSpent: 15_400_000, LastOrderDate: "2023-11-21", Status: ClientVIP, PriceListID: "pl-distribuidor"},
		{ID: "C006", Name: "Sofía Castro", Company: "Botillería Oasis", RUT: "11.234.567-8", Giro: "Venta de bebidas alcohólicas", Address: "San Martín 556, Rancagua", Email: "sofia.c@oasis.cl", Phone: "+56 9 6666 7777", TotalSpent: 3_800_000, LastOrderDate: "2023-11-10", Status: ClientActive, PriceListID: "pl-mayorista"},
		{ID: "C007", Name: "Andrés López", Company: "Restaurante Mar y Tierra", RUT: "99.111.222-3", Giro: "Restaurante y servicios de comida", Address: "Costanera 880, Coquimbo", Email: "alopez@marytierra.cl", Phone: "+56 9 7777 8888", TotalSpent: 9_200_000, LastOrderDate: "2023-11-19", Status: ClientActive, PriceListID: "pl-mayorista"},
		{ID: "C008", Name: "Lucía Méndez", Company: "Limpieza Total SpA", RUT: "76.444.555-4", Giro: "Venta de artículos de limpieza", Address: "Vicuña Mackenna 1500, Ñuñoa", Email: "lucia.m@limpiezatotal.cl", Phone: "+56 9 8888 9999", TotalSpent: 1_100_000, LastOrderDate: "2023-11-05", Status: ClientInactive, PriceListID: BasePriceListID},
		{ID: "C009", Name: "Pedro Sánchez", Company: "Almacén de la Esquina", RUT: "8.333.222-1", Giro: "Comercio al por menor", Address: "O'Higgins 44, Curicó", Email: "p.sanchez@almacen.cl", Phone: "+56 9 9999 1111", TotalSpent: 5_600_000, LastOrderDate: "2023-11-20", Status: ClientActive, PriceListID: "pl-mayorista"},
		{ID: "C010", Name: "Francisca Valdés", Company: "Hotel Estelar", RUT: "77.555.666-5", Giro: "Hotelería y alojamiento", Address: "Paicaví 1240, Concepción", Email: "fvaldes@estelar.cl", Phone: "+56 9 1212 2323", TotalSpent: 18_900_000, LastOrderDate: "2023-11-22", Status: ClientVIP, PriceListID: "pl-distribuidor"},
		{ID: "C011", Name: "Daniela Toro", Company: "Gimnasio FitLife", RUT: "14.555.444-3", Giro: "Servicios deportivos", Address: "Av. Kennedy 4500, Vitacura", Email: "daniela.t@fitlife.cl", Phone: "+56 9 2323 3434", TotalSpent: 1_400_000, LastOrderDate: "2023-11-12", Status: ClientNew, PriceListID: BasePriceListID},
		{ID: "C012", Name: "Jorge Herrera", Company: "Carnes Premium", RUT: "10.999.888-7", Giro: "Venta de carnes al por mayor", Address: "Matadero 445, Santiago Centro", Email: "jherrera@premium.cl", Phone: "+56 9 3434 4545", TotalSpent: 25_000_000, LastOrderDate: "2023-11-21", Status: ClientVIP, PriceListID: "pl-distribuidor"},
		{ID: "C013", Name: "Isabel Fuentes", Company: "Librería Horizonte", RUT: "13.111.222-K", Giro: "Venta de libros y papelería", Address: "Barros Arana 330, Concepción", Email: "i.fuentes@horizonte.cl", Phone: "+56 9 4545 5656", TotalSpent: 900_000, LastOrderDate: "2023-10-25", Status: ClientInactive, PriceListID: BasePriceListID},
		{ID: "C014", Name: "Miguel Rojas", Company: "Eventos del Sur", RUT: "16.888.777-9", Giro: "Organización de eventos", Address: "Camino Pucón-Villarrica Km 5", Email: "mrojas@sur.cl", Phone: "+56 9 5656 6767", TotalSpent: 6_700_000, LastOrderDate: "2023-11-14", Status: ClientActive, PriceListID: "pl-mayorista"},
		{ID: "C015", Name: "Verónica Soto", Company: "Tiendas Estilo SpA", RUT: "76.999.888-1", Giro: "Comercio de vestuario", Address: "Mall Plaza Trébol, Talcahuano", Email: "v.soto@estilo.cl", Phone: "+56 9 6767 7878", TotalSpent: 3_400_000, LastOrderDate: "2023-11-08", Status: ClientActive, PriceListID: "pl-mayorista"},
		{ID: "C016", Name: "Luis Contreras", Company: "Sol de América Distribuciones", RUT: "77.222.111-0", Giro: "Distribución nacional", Address: "Quilicura Industrial 44, Santiago", Email: "lc@soldeamerica.cl", Phone: "+56 9 7878 8989", TotalSpent: 45_000_000, LastOrderDate: "2023-11-22", Status: ClientVIP, PriceListID: "pl-distribuidor"},
		{ID: "C017", Name: "Camila Reyes", Company: "Estudio de Música", RUT: "19.333.444-5", Giro: "Servicios culturales", Address: "Baquedano 12, Iquique", Email: "camila@estudio.cl", Phone: "+56 9 8989 9090", TotalSpent: 500_000, LastOrderDate: "2023-09-15", Status: ClientNew, PriceListID: BasePriceListID},
		{ID: "C018", Name: "Pablo Vergara", Company: "Poesía Gourmet", RUT: "5.111.000-8", Giro: "Cafetería y bistro", Address: "Isla Negra, El Quisco", Email: "pablo@gourmet.cl", Phone: "+56 9 9090 0101", TotalSpent: 2_800_000, LastOrderDate: "2023-11-20", Status: ClientActive, PriceListID: BasePriceListID},
		{ID: "C019", Name: "Gabriela Muñoz", Company: "Educación Siglo XXI", RUT: "6.444.555-K", Giro: "Insumos educacionales", Address: "Vicuña 445, Valle de Elqui", Email: "gabriela@siglo21.cl", Phone: "+56 9 0101 1212", TotalSpent: 1_200_000, LastOrderDate: "2023-10-30", Status: ClientInactive, PriceListID: BasePriceListID},
		{ID: "C020", Name: "Alexis Araya", Company: "Tocopilla Export", RUT: "17.777.888-2", Giro: "Servicios de transporte y exportación", Address: "Serrano 55, Tocopilla", Email: "alexis@export.cl", Phone: "+56 9 1212 3434", TotalSpent: 31_000_000, LastOrderDate: "2023-11-22", Status: ClientVIP, PriceListID: "pl-distribuidor"},
	}
	for i := range clients {
		clients[i].Avatar = "https://i.pravatar.cc/150?u=" + clients[i].ID
	}
	return clients
}

// Seed builds the demo store from the given product seed.
func Seed(seed int64) (*Store, error) {
	return NewStore(SeedProducts(seed), SeedClients(), SeedPriceLists())
}
