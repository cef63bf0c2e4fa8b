package sandbox

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"StoreClient/internal/api"
	"StoreClient/pkg/kit"
)

const (
	maxBody         = 1 << 20
	maxUpload       = 8 << 20
	defaultPerPage  = 15
	defaultTokenTTL = 24 * time.Hour
)

type Server struct {
	Store    *Store
	JWT      *TokenMaker
	Faults   *Faults
	Log      *zap.Logger
	Version  string
	TokenTTL time.Duration
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe FieldErrors
	switch {
	case errors.As(err, &fe):
		kit.WriteFail(w, http.StatusUnprocessableEntity, "The given data was invalid.", fe)
	case errors.Is(err, ErrNotFound):
		kit.WriteFail(w, http.StatusNotFound, "Data tidak ditemukan.", nil)
	case errors.Is(err, ErrInvalidCredentials):
		kit.WriteFail(w, http.StatusUnauthorized, "Email atau password salah.", nil)
	case errors.Is(err, ErrNotCancellable):
		kit.WriteFail(w, http.StatusUnprocessableEntity, "Pesanan tidak dapat dibatalkan.", nil)
	default:
		kit.OrNop(s.Log).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		kit.WriteFail(w, http.StatusInternalServerError, "Server error", nil)
	}
}

func badJSON(w http.ResponseWriter) {
	kit.WriteFail(w, http.StatusBadRequest, "Invalid JSON body.", nil)
}

// paginate slices items by the page and per_page query parameters.
func paginate[T any](r *http.Request, items []T) ([]T, *kit.PageMeta) {
	page := queryInt(r, "page", 1)
	per := queryInt(r, "per_page", defaultPerPage)
	if page < 1 {
		page = 1
	}
	if per < 1 {
		per = defaultPerPage
	}

	last := max((len(items)+per-1)/per, 1)
	lo := min((page-1)*per, len(items))
	hi := min(lo+per, len(items))
	out := items[lo:hi]
	if out == nil {
		out = []T{}
	}
	return out, &kit.PageMeta{CurrentPage: page, LastPage: last, PerPage: per, Total: len(items)}
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, key string) float64 {
	v, _ := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	return v
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	kit.WriteOK(w, http.StatusOK, api.Status{
		Status:    "ok",
		Message:   "API is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.Version,
	}, nil)
}

func (s *Server) handleBanners(w http.ResponseWriter, _ *http.Request) {
	kit.WriteOK(w, http.StatusOK, s.Store.Banners(), nil)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	kit.WriteOK(w, http.StatusOK, s.Store.Categories(), nil)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cat, _ := strconv.ParseInt(q.Get("kategori_id"), 10, 64)
	items := s.Store.Products(ProductFilter{
		Search:     q.Get("search"),
		CategoryID: cat,
		MinPrice:   queryFloat(r, "min_harga"),
		MaxPrice:   queryFloat(r, "max_harga"),
		Sort:       q.Get("sort_by"),
	})
	page, meta := paginate(r, items)
	kit.WriteOK(w, http.StatusOK, page, meta)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		kit.WriteFail(w, http.StatusNotFound, "Produk tidak ditemukan.", nil)
		return
	}
	p, err := s.Store.Product(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, p, nil)
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, c api.Customer, status int) {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	token, err := s.JWT.New(c.ID, c.Email, ttl)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, status, api.AuthResponse{Customer: c, Token: token}, nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		kit.WriteFail(w, http.StatusUnprocessableEntity, "The given data was invalid.",
			map[string][]string{"email": {"Email dan password wajib diisi."}})
		return
	}

	c, err := s.Store.Verify(req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.issue(w, r, c, http.StatusOK)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.Registration
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w)
		return
	}
	c, err := s.Store.Register(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.issue(w, r, c, http.StatusCreated)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	s.Store.Revoke(p.TokenID)
	kit.WriteOK(w, http.StatusOK, nil, nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	c, err := s.Store.Customer(p.CustomerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, c, nil)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req api.ProfileUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w)
		return
	}
	p, _ := principalFrom(r.Context())
	c, err := s.Store.UpdateCustomer(p.CustomerID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, c, nil)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	d, err := s.Store.Dashboard(p.CustomerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, d, nil)
}

func (s *Server) handleAddresses(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	kit.WriteOK(w, http.StatusOK, s.Store.Addresses(p.CustomerID), nil)
}

func (s *Server) handleSaveAddress(w http.ResponseWriter, r *http.Request) {
	var id int64
	if chi.URLParam(r, "id") != "" {
		var ok bool
		if id, ok = idParam(r); !ok {
			s.writeError(w, r, ErrNotFound)
			return
		}
	}

	var req api.AddressInput
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w)
		return
	}
	p, _ := principalFrom(r.Context())
	a, err := s.Store.SaveAddress(p.CustomerID, id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	kit.WriteOK(w, status, a, nil)
}

func (s *Server) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	p, _ := principalFrom(r.Context())
	if err := s.Store.DeleteAddress(p.CustomerID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, nil, nil)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req api.NewOrder
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w)
		return
	}
	p, _ := principalFrom(r.Context())
	o, err := s.Store.CreateOrder(p.CustomerID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.OrNop(s.Log).Info("order created", zap.Int64("customer_id", p.CustomerID), zap.String("number", o.Number))
	kit.WriteOK(w, http.StatusCreated, o, nil)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	page, meta := paginate(r, s.Store.Orders(p.CustomerID))
	kit.WriteOK(w, http.StatusOK, page, meta)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	p, _ := principalFrom(r.Context())
	o, err := s.Store.Order(p.CustomerID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, o, nil)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	p, _ := principalFrom(r.Context())
	o, err := s.Store.CancelOrder(p.CustomerID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, o, nil)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	page, meta := paginate(r, s.Store.Transactions(p.CustomerID, r.URL.Query().Get("status")))
	kit.WriteOK(w, http.StatusOK, page, meta)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	p, _ := principalFrom(r.Context())
	t, err := s.Store.Transaction(p.CustomerID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, t, nil)
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	page, meta := paginate(r, s.Store.Points(p.CustomerID))
	kit.WriteOK(w, http.StatusOK, page, meta)
}

func (s *Server) handleWishlist(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	page, meta := paginate(r, s.Store.Wishlist(p.CustomerID))
	kit.WriteOK(w, http.StatusOK, page, meta)
}

func (s *Server) handleAddWishlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int64 `json:"produk_id"`
		VariantID int64 `json:"varian_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w)
		return
	}
	p, _ := principalFrom(r.Context())
	item, err := s.Store.AddWishlist(p.CustomerID, req.ProductID, req.VariantID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusCreated, item, nil)
}

func (s *Server) handleRemoveWishlist(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	p, _ := principalFrom(r.Context())
	if err := s.Store.RemoveWishlist(p.CustomerID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, nil, nil)
}

func (s *Server) handlePromotions(w http.ResponseWriter, _ *http.Request) {
	kit.WriteOK(w, http.StatusOK, s.Store.Promotions(), nil)
}

func (s *Server) handleValidatePromo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string  `json:"kode_promo"`
		Total float64 `json:"total_belanja"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w)
		return
	}
	kit.WriteOK(w, http.StatusOK, s.Store.ValidatePromo(req.Code, req.Total), nil)
}

func (s *Server) handlePaymentMethods(w http.ResponseWriter, _ *http.Request) {
	kit.WriteOK(w, http.StatusOK, s.Store.PaymentMethods(), nil)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	page, meta := paginate(r, s.Store.Notifications(p.CustomerID))
	kit.WriteOK(w, http.StatusOK, page, meta)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	p, _ := principalFrom(r.Context())
	if err := s.Store.MarkRead(p.CustomerID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, nil, nil)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		kit.WriteFail(w, http.StatusBadRequest, "Invalid multipart body.", nil)
		return
	}

	for _, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		url := "/uploads/" + uuid.NewString() + "-" + headers[0].Filename
		kit.WriteOK(w, http.StatusCreated, api.UploadResult{URL: url}, nil)
		return
	}
	kit.WriteFail(w, http.StatusUnprocessableEntity, "The given data was invalid.",
		map[string][]string{"file": {"File wajib diunggah."}})
}

func (s *Server) handleGetFaults(w http.ResponseWriter, _ *http.Request) {
	kit.WriteOK(w, http.StatusOK, s.Faults.Settings(), nil)
}

func (s *Server) handleSetFaults(w http.ResponseWriter, r *http.Request) {
	var req FaultSettings
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w)
		return
	}
	s.Faults.apply(req)
	kit.OrNop(s.Log).Info("faults changed", zap.Any("faults", req))
	kit.WriteOK(w, http.StatusOK, s.Faults.Settings(), nil)
}

func (s *Server) handleResetFaults(w http.ResponseWriter, _ *http.Request) {
	s.Faults.Reset()
	kit.WriteOK(w, http.StatusOK, s.Faults.Settings(), nil)
}

func (s *Server) handleSetStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int64    `json:"produk_id"`
		VariantID int64    `json:"varian_id"`
		Stock     *int     `json:"stok"`
		Price     *float64 `json:"harga_jual"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w)
		return
	}
	if req.Stock != nil {
		if err := s.Store.SetStock(req.ProductID, req.VariantID, *req.Stock); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Price != nil {
		if err := s.Store.SetPrice(req.ProductID, req.VariantID, *req.Price); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	p, err := s.Store.Product(req.ProductID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteOK(w, http.StatusOK, p, nil)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.Store == nil || s.JWT == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
