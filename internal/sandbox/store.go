package sandbox

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"StoreClient/internal/api"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrNotCancellable     = errors.New("order can no longer be cancelled")
)

// FieldErrors is a validation failure keyed by request field.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string { return "validation failed" }

func (e FieldErrors) add(field, msg string) { e[field] = append(e[field], msg) }

type customerRecord struct {
	api.Customer
	hash []byte
}

// Store is the sandbox's whole storefront state, in memory.
type Store struct {
	mu   sync.Mutex
	cost int
	now  func() time.Time
	seq  int64

	customers map[int64]*customerRecord
	byEmail   map[string]int64
	revoked   map[string]bool

	categories []api.Category
	banners    []api.Banner
	productIDs []int64
	products   map[int64]*api.Product
	payments   []api.PaymentMethod
	promos     []api.Promotion

	addresses     map[int64][]api.Address
	orders        map[int64][]api.Order
	transactions  map[int64][]api.Transaction
	points        map[int64][]api.PointEntry
	wishlist      map[int64][]api.WishlistItem
	notifications map[int64][]api.Notification
}

type StoreOption func(*Store)

// WithBcryptCost lowers hashing cost for tests.
func WithBcryptCost(cost int) StoreOption { return func(s *Store) { s.cost = cost } }

func WithNow(now func() time.Time) StoreOption { return func(s *Store) { s.now = now } }

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		cost:          bcrypt.DefaultCost,
		now:           time.Now,
		customers:     make(map[int64]*customerRecord),
		byEmail:       make(map[string]int64),
		revoked:       make(map[string]bool),
		products:      make(map[int64]*api.Product),
		addresses:     make(map[int64][]api.Address),
		orders:        make(map[int64][]api.Order),
		transactions:  make(map[int64][]api.Transaction),
		points:        make(map[int64][]api.PointEntry),
		wishlist:      make(map[int64][]api.WishlistItem),
		notifications: make(map[int64][]api.Notification),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) nextID() int64 {
	s.seq++
	return 1000 + s.seq
}

func (s *Store) stamp() string { return s.now().UTC().Format(time.RFC3339) }

// Register creates a customer after validating the registration form.
func (s *Store) Register(r api.Registration) (api.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(r.Email))

	fe := FieldErrors{}
	if strings.TrimSpace(r.Name) == "" {
		fe.add("nama_pelanggan", "Nama pelanggan wajib diisi.")
	}
	if email == "" || !strings.Contains(email, "@") {
		fe.add("email", "Email tidak valid.")
	}
	if strings.TrimSpace(r.Phone) == "" {
		fe.add("telepon", "Telepon wajib diisi.")
	}
	if len(r.Password) < 8 {
		fe.add("password", "Password minimal 8 karakter.")
	}
	if r.Password != r.PasswordConfirmation {
		fe.add("password", "Konfirmasi password tidak cocok.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		fe.add("email", "Email sudah terdaftar.")
	}
	if len(fe) > 0 {
		return api.Customer{}, fe
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return api.Customer{}, err
	}

	id := s.nextID()
	c := api.Customer{
		ID:        id,
		Name:      strings.TrimSpace(r.Name),
		Email:     email,
		Phone:     r.Phone,
		Address:   r.Address,
		Code:      fmt.Sprintf("CUST%05d", id),
		JoinedAt:  s.now().UTC().Format(time.DateOnly),
		Status:    "aktif",
		CreatedAt: s.stamp(),
		UpdatedAt: s.stamp(),
	}
	s.customers[id] = &customerRecord{Customer: c, hash: hash}
	s.byEmail[email] = id
	return c, nil
}

func (s *Store) Verify(email, password string) (api.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	id, ok := s.byEmail[email]
	var rec customerRecord
	if ok {
		rec = *s.customers[id]
	}
	s.mu.Unlock()

	if !ok {
		return api.Customer{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.hash, []byte(password)); err != nil {
		return api.Customer{}, ErrInvalidCredentials
	}
	return rec.Customer, nil
}

func (s *Store) Revoke(tokenID string) {
	s.mu.Lock()
	s.revoked[tokenID] = true
	s.mu.Unlock()
}

func (s *Store) Revoked(tokenID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[tokenID]
}

func (s *Store) Customer(id int64) (api.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.customers[id]
	if !ok {
		return api.Customer{}, ErrNotFound
	}
	return rec.Customer, nil
}

func (s *Store) UpdateCustomer(id int64, u api.ProfileUpdate) (api.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.customers[id]
	if !ok {
		return api.Customer{}, ErrNotFound
	}

	if u.Email != "" {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if other, taken := s.byEmail[email]; taken && other != id {
			return api.Customer{}, FieldErrors{"email": {"Email sudah terdaftar."}}
		}
		delete(s.byEmail, rec.Email)
		s.byEmail[email] = id
		rec.Email = email
	}
	if u.Name != "" {
		rec.Name = u.Name
	}
	if u.Phone != "" {
		rec.Phone = u.Phone
	}
	if u.Address != "" {
		rec.Address = u.Address
	}
	rec.UpdatedAt = s.stamp()
	return rec.Customer, nil
}

func (s *Store) Dashboard(id int64) (api.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.customers[id]
	if !ok {
		return api.Dashboard{}, ErrNotFound
	}

	d := api.Dashboard{Customer: rec.Customer, AvailablePromotions: slices.Clone(s.promos)}
	orders := s.orders[id]
	d.Summary.TotalOrders = len(orders)
	for _, o := range orders {
		switch o.Status {
		case "pending":
			d.Summary.PendingOrders++
		case "delivered":
			d.Summary.CompletedOrders++
		}
	}
	d.Summary.TotalPoints = rec.Points
	d.Summary.TotalSpent = rec.TotalSpent
	d.RecentOrders = slices.Clone(orders[:min(len(orders), 3)])
	for _, n := range s.notifications[id] {
		if !n.IsRead {
			d.NotificationsCount++
		}
	}
	return d, nil
}

func (s *Store) Categories() []api.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories)
}

func (s *Store) Banners() []api.Banner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.banners)
}

func (s *Store) PaymentMethods() []api.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.payments)
}

func (s *Store) Promotions() []api.Promotion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.promos)
}

func (s *Store) AddProduct(p api.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		s.productIDs = append(s.productIDs, p.ID)
	}
	recountStock(&p)
	s.products[p.ID] = &p
}

func recountStock(p *api.Product) {
	if len(p.Variants) == 0 {
		return
	}
	p.TotalStock = 0
	p.MinPrice, p.MaxPrice = math.MaxFloat64, 0
	for _, v := range p.Variants {
		p.TotalStock += v.Stock
		p.MinPrice = min(p.MinPrice, v.SellPrice)
		p.MaxPrice = max(p.MaxPrice, v.SellPrice)
	}
}

func (s *Store) Product(id int64) (api.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return api.Product{}, ErrNotFound
	}
	return cloneProduct(*p), nil
}

// SetStock overrides a product's or variant's stock.
func (s *Store) SetStock(productID, variantID int64, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return ErrNotFound
	}
	if variantID == 0 {
		p.TotalStock = stock
		return nil
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			p.Variants[i].Stock = stock
			recountStock(p)
			return nil
		}
	}
	return ErrNotFound
}

// SetPrice overrides a product's or variant's selling price.
func (s *Store) SetPrice(productID, variantID int64, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return ErrNotFound
	}
	if variantID == 0 {
		p.MinPrice, p.MaxPrice = price, price
		return nil
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			p.Variants[i].SellPrice = price
			recountStock(p)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) RemoveProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	s.productIDs = slices.DeleteFunc(s.productIDs, func(x int64) bool { return x == id })
}

type ProductFilter struct {
	Search     string
	CategoryID int64
	MinPrice   float64
	MaxPrice   float64
	Sort       string
}

func (s *Store) Products(f ProductFilter) []api.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(f.Search))
	var out []api.Product
	for _, id := range s.productIDs {
		p := s.products[id]
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		if f.CategoryID > 0 && p.CategoryID != f.CategoryID {
			continue
		}
		if f.MinPrice > 0 && p.MaxPrice < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && p.MinPrice > f.MaxPrice {
			continue
		}
		out = append(out, cloneProduct(*p))
	}

	switch f.Sort {
	case string(api.SortName):
		slices.SortStableFunc(out, func(a, b api.Product) int { return strings.Compare(a.Name, b.Name) })
	case string(api.SortPriceAsc):
		slices.SortStableFunc(out, func(a, b api.Product) int { return cmpFloat(a.MinPrice, b.MinPrice) })
	case string(api.SortPriceDesc):
		slices.SortStableFunc(out, func(a, b api.Product) int { return cmpFloat(b.MinPrice, a.MinPrice) })
	case string(api.SortNewest):
		slices.Reverse(out)
	}
	return out
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cloneProduct(p api.Product) api.Product {
	p.Variants = slices.Clone(p.Variants)
	p.Images = slices.Clone(p.Images)
	if p.Category != nil {
		c := *p.Category
		p.Category = &c
	}
	return p
}

func (s *Store) Addresses(customerID int64) []api.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.addresses[customerID])
}

func validateAddress(a api.AddressInput) error {
	fe := FieldErrors{}
	if strings.TrimSpace(a.RecipientName) == "" {
		fe.add("nama_penerima", "Nama penerima wajib diisi.")
	}
	if strings.TrimSpace(a.FullAddress) == "" {
		fe.add("alamat_lengkap", "Alamat lengkap wajib diisi.")
	}
	if strings.TrimSpace(a.City) == "" {
		fe.add("kota", "Kota wajib diisi.")
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

func (s *Store) SaveAddress(customerID, id int64, in api.AddressInput) (api.Address, error) {
	if err := validateAddress(in); err != nil {
		return api.Address{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.addresses[customerID]
	i := slices.IndexFunc(list, func(a api.Address) bool { return a.ID == id })
	if id != 0 && i < 0 {
		return api.Address{}, ErrNotFound
	}
	if id == 0 {
		id = s.nextID()
		list = append(list, api.Address{ID: id})
		i = len(list) - 1
	}

	list[i] = api.Address{
		ID:             id,
		Label:          in.Label,
		RecipientName:  in.RecipientName,
		RecipientPhone: in.RecipientPhone,
		FullAddress:    in.FullAddress,
		City:           in.City,
		Province:       in.Province,
		PostalCode:     in.PostalCode,
		IsDefault:      in.IsDefault || len(list) == 1,
	}
	if list[i].IsDefault {
		for j := range list {
			list[j].IsDefault = j == i
		}
	}
	s.addresses[customerID] = list
	return list[i], nil
}

func (s *Store) DeleteAddress(customerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.addresses[customerID]
	n := len(list)
	list = slices.DeleteFunc(list, func(a api.Address) bool { return a.ID == id })
	if len(list) == n {
		return ErrNotFound
	}
	s.addresses[customerID] = list
	return nil
}

// findPromo looks a promotion up by code. Caller holds mu.
func (s *Store) findPromo(code string) (api.Promotion, bool) {
	for _, p := range s.promos {
		if strings.EqualFold(p.Code, code) {
			return p, true
		}
	}
	return api.Promotion{}, false
}

func discountFor(p api.Promotion, total float64) float64 {
	d := p.Value
	if p.DiscountKind == "persentase" {
		d = total * p.Value / 100
	}
	if p.MaxDiscount > 0 {
		d = min(d, p.MaxDiscount)
	}
	return math.Round(min(d, total))
}

func (s *Store) ValidatePromo(code string, total float64) api.PromoValidation {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findPromo(code)
	if !ok {
		return api.PromoValidation{Message: "Kode promo tidak ditemukan."}
	}
	if total < p.MinPurchase {
		return api.PromoValidation{Promo: &p, Message: fmt.Sprintf("Minimal pembelian %.0f.", p.MinPurchase)}
	}
	return api.PromoValidation{Valid: true, Promo: &p, TotalDiscount: discountFor(p, total), Message: "Kode promo valid."}
}

const pointsPerRupiah = 1.0 / 10000

// CreateOrder validates stock, prices the order, reserves stock and books
// the matching transaction, points and notification.
func (s *Store) CreateOrder(customerID int64, in api.NewOrder) (api.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.customers[customerID]
	if !ok {
		return api.Order{}, ErrNotFound
	}

	fe := FieldErrors{}
	if len(in.Items) == 0 {
		fe.add("items", "Minimal satu item.")
	}
	if !slices.ContainsFunc(s.payments, func(p api.PaymentMethod) bool { return p.ID == in.PaymentMethodID }) {
		fe.add("metode_pembayaran_id", "Metode pembayaran tidak valid.")
	}
	address := in.ShippingAddress
	if in.AddressID != 0 {
		i := slices.IndexFunc(s.addresses[customerID], func(a api.Address) bool { return a.ID == in.AddressID })
		if i < 0 {
			fe.add("address_id", "Alamat tidak ditemukan.")
		} else {
			address = s.addresses[customerID][i].FullAddress
		}
	}
	if strings.TrimSpace(address) == "" {
		fe.add("alamat_pengiriman", "Alamat pengiriman wajib diisi.")
	}

	var (
		items []api.OrderItem
		total float64
	)
	for i, line := range in.Items {
		field := fmt.Sprintf("items.%d", i)
		p, ok := s.products[line.ProductID]
		if !ok {
			fe.add(field+".produk_id", "Produk tidak ditemukan.")
			continue
		}
		if line.Quantity <= 0 {
			fe.add(field+".jumlah", "Jumlah minimal 1.")
			continue
		}

		price, stock, variantName := p.MinPrice, p.TotalStock, ""
		if line.VariantID != 0 {
			v, ok := p.Variant(line.VariantID)
			if !ok {
				fe.add(field+".varian_id", "Varian tidak ditemukan.")
				continue
			}
			price, stock, variantName = v.SellPrice, v.Stock, v.Name
		}
		if line.Quantity > stock {
			fe.add(field+".jumlah", fmt.Sprintf("Stok %s hanya tersisa %d.", p.Name, stock))
			continue
		}

		items = append(items, api.OrderItem{
			ID:          s.nextID(),
			ProductID:   p.ID,
			VariantID:   line.VariantID,
			ProductName: p.Name,
			VariantName: variantName,
			Quantity:    line.Quantity,
			Price:       price,
			Subtotal:    price * float64(line.Quantity),
		})
		total += price * float64(line.Quantity)
	}

	var discount float64
	if in.PromoCode != "" {
		promo, ok := s.findPromo(in.PromoCode)
		switch {
		case !ok:
			fe.add("promo_code", "Kode promo tidak ditemukan.")
		case total < promo.MinPurchase:
			fe.add("promo_code", "Belum memenuhi minimal pembelian.")
		default:
			discount = discountFor(promo, total)
		}
	}
	if in.PointsUsed > rec.Points {
		fe.add("poin_digunakan", "Poin tidak mencukupi.")
	}
	if len(fe) > 0 {
		return api.Order{}, fe
	}

	for _, it := range items {
		p := s.products[it.ProductID]
		if it.VariantID == 0 {
			p.TotalStock -= it.Quantity
			continue
		}
		for i := range p.Variants {
			if p.Variants[i].ID == it.VariantID {
				p.Variants[i].Stock -= it.Quantity
			}
		}
		recountStock(p)
	}

	id := s.nextID()
	paid := max(total-discount-float64(in.PointsUsed), 0)
	earned := int(paid * pointsPerRupiah)
	o := api.Order{
		ID:              id,
		Number:          "ORD-" + strings.ToUpper(uuid.NewString()[:8]),
		Date:            s.stamp(),
		Status:          "pending",
		TotalPrice:      total,
		TotalDiscount:   discount,
		TotalPaid:       paid,
		PaymentMethodID: in.PaymentMethodID,
		ShippingAddress: address,
		Note:            in.Note,
		PointsUsed:      in.PointsUsed,
		PointsEarned:    earned,
		PromoCode:       in.PromoCode,
		Items:           items,
	}
	for _, pm := range s.payments {
		if pm.ID == in.PaymentMethodID {
			o.PaymentMethod = &pm
		}
	}
	s.orders[customerID] = append([]api.Order{o}, s.orders[customerID]...)

	before := rec.Points
	rec.Points += earned - in.PointsUsed
	rec.TotalSpent += paid
	s.points[customerID] = append([]api.PointEntry{{
		ID:            s.nextID(),
		Kind:          "earned",
		Points:        earned - in.PointsUsed,
		BalanceBefore: before,
		BalanceAfter:  rec.Points,
		Description:   "Order " + o.Number,
		CreatedAt:     s.stamp(),
	}}, s.points[customerID]...)

	method := ""
	if o.PaymentMethod != nil {
		method = o.PaymentMethod.Name
	}
	s.transactions[customerID] = append([]api.Transaction{{
		ID:            s.nextID(),
		Number:        "TRX-" + strings.TrimPrefix(o.Number, "ORD-"),
		Date:          o.Date,
		Kind:          "pembelian",
		TotalPrice:    total,
		TotalDiscount: discount,
		TotalPaid:     paid,
		Status:        "pending",
		PaymentMethod: method,
	}}, s.transactions[customerID]...)

	s.notify(customerID, "order", "Pesanan dibuat", "Pesanan "+o.Number+" menunggu pembayaran.")
	return o, nil
}

// notify appends a notification. Caller holds mu.
func (s *Store) notify(customerID int64, kind, title, body string) {
	s.notifications[customerID] = append([]api.Notification{{
		ID:     s.nextID(),
		Title:  title,
		Body:   body,
		Kind:   kind,
		SentAt: s.stamp(),
	}}, s.notifications[customerID]...)
}

func (s *Store) Orders(customerID int64) []api.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.orders[customerID])
}

func (s *Store) Order(customerID, id int64) (api.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders[customerID] {
		if o.ID == id {
			return o, nil
		}
	}
	return api.Order{}, ErrNotFound
}

// CancelOrder cancels a pending order and returns its stock.
func (s *Store) CancelOrder(customerID, id int64) (api.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.orders[customerID]
	i := slices.IndexFunc(list, func(o api.Order) bool { return o.ID == id })
	if i < 0 {
		return api.Order{}, ErrNotFound
	}
	if list[i].Status != "pending" {
		return api.Order{}, ErrNotCancellable
	}

	for _, it := range list[i].Items {
		p, ok := s.products[it.ProductID]
		if !ok {
			continue
		}
		if it.VariantID == 0 {
			p.TotalStock += it.Quantity
			continue
		}
		for j := range p.Variants {
			if p.Variants[j].ID == it.VariantID {
				p.Variants[j].Stock += it.Quantity
			}
		}
		recountStock(p)
	}
	list[i].Status = "cancelled"
	s.notify(customerID, "order", "Pesanan dibatalkan", "Pesanan "+list[i].Number+" dibatalkan.")
	return list[i], nil
}

func (s *Store) Transactions(customerID int64, status string) []api.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.transactions[customerID])
	if status != "" {
		out = slices.DeleteFunc(out, func(t api.Transaction) bool { return t.Status != status })
	}
	return out
}

func (s *Store) Transaction(customerID, id int64) (api.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions[customerID] {
		if t.ID == id {
			return t, nil
		}
	}
	return api.Transaction{}, ErrNotFound
}

func (s *Store) Points(customerID int64) []api.PointEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.points[customerID])
}

func (s *Store) Wishlist(customerID int64) []api.WishlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.wishlist[customerID])
}

func (s *Store) AddWishlist(customerID, productID, variantID int64) (api.WishlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return api.WishlistItem{}, FieldErrors{"produk_id": {"Produk tidak ditemukan."}}
	}
	for _, w := range s.wishlist[customerID] {
		if w.ProductID == productID && w.VariantID == variantID {
			return w, nil
		}
	}

	prod := cloneProduct(*p)
	w := api.WishlistItem{ID: s.nextID(), ProductID: productID, VariantID: variantID, CreatedAt: s.stamp(), Product: &prod}
	if variantID != 0 {
		v, ok := p.Variant(variantID)
		if !ok {
			return api.WishlistItem{}, FieldErrors{"varian_id": {"Varian tidak ditemukan."}}
		}
		w.Variant = &v
	}
	s.wishlist[customerID] = append(s.wishlist[customerID], w)
	return w, nil
}

func (s *Store) RemoveWishlist(customerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.wishlist[customerID]
	n := len(list)
	list = slices.DeleteFunc(list, func(w api.WishlistItem) bool { return w.ID == id })
	if len(list) == n {
		return ErrNotFound
	}
	s.wishlist[customerID] = list
	return nil
}

func (s *Store) Notifications(customerID int64) []api.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notifications[customerID])
}

func (s *Store) MarkRead(customerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications[customerID] {
		if n.ID == id {
			s.notifications[customerID][i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}
