package workflow

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"bitbucket.org/bjitlabs/erpgate_backend/models"
	"bitbucket.org/bjitlabs/erpgate_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free and ERP-free. The fakes below
// model the port semantics the workflows depend on; integration tests against
// a real ERP and MySQL belong in an environment that can run both.

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() config.Config {
	return config.Config{
		APIAccessKey:   "test-key",
		JwtSecret:      "test-secret",
		JwtLifespan:    time.Hour,
		SignupPolicy:   config.SignupPolicyOtp,
		MailFrom:       "noreply@example.com",
		OtpTTL:         5 * time.Minute,
		OtpMaxAttempts: 5,
	}
}

type fakeOtpRepo struct {
	byEmail map[string]*models.CustomerOtp

	replaceErr error
	deleteErr  error
}

func newFakeOtpRepo() *fakeOtpRepo {
	return &fakeOtpRepo{byEmail: map[string]*models.CustomerOtp{}}
}

func (r *fakeOtpRepo) ReplaceOtp(_ context.Context, email, otpHash string, expiration time.Time) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.byEmail[email] = &models.CustomerOtp{Email: email, OtpHash: otpHash, ExpirationTime: expiration}
	return nil
}

func (r *fakeOtpRepo) LiveOtp(_ context.Context, email string, now time.Time) (*models.CustomerOtp, error) {
	otp, ok := r.byEmail[email]
	if !ok || !otp.ExpirationTime.After(now) {
		return nil, nil
	}
	return otp, nil
}

func (r *fakeOtpRepo) DeleteForEmail(_ context.Context, email string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.byEmail, email)
	return nil
}

// seed stores a bcrypt hash of code the way RequestOtp would.
func (r *fakeOtpRepo) seed(email, code string, expiration time.Time) {
	hash, err := utils.HashSecret(code)
	if err != nil {
		panic(err)
	}
	r.byEmail[email] = &models.CustomerOtp{Email: email, OtpHash: string(hash), ExpirationTime: expiration}
}

type fakeAttempts struct {
	counts map[string]int64
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{counts: map[string]int64{}}
}

func (a *fakeAttempts) Incr(_ context.Context, email string, _ time.Duration) (int64, error) {
	a.counts[email]++
	return a.counts[email], nil
}

func (a *fakeAttempts) Reset(_ context.Context, email string) error {
	delete(a.counts, email)
	return nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	sent    []sentMail
	sendErr error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// fakeStore is an in-memory stand-in for the full port surface. Error fields
// inject failures at specific steps; everything else behaves like a small,
// well-behaved ERP.
type fakeStore struct {
	products map[int]erp.Product
	partners map[int]erp.Partner
	orders   map[int]*erp.SalesOrder
	lines    map[int][]erp.OrderLine
	pickings map[int][]erp.Picking
	invoices map[int][]erp.Invoice
	users    map[string]erp.User
	vehicles map[int]erp.Vehicle

	nextId int

	passwords map[string]string

	bankJournal *erp.Journal

	createUserErr    error
	createPartnerErr error
	createLineErr    error
	confirmOrderErr  error
	validateErr      error
	createInvoiceErr error
	registerPayErr   error

	createInvoiceCalls int
	registerPayCalls   int
	deletedUsers       []int
	deletedPartners    []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:    map[int]erp.Product{},
		partners:    map[int]erp.Partner{},
		orders:      map[int]*erp.SalesOrder{},
		lines:       map[int][]erp.OrderLine{},
		pickings:    map[int][]erp.Picking{},
		invoices:    map[int][]erp.Invoice{},
		users:       map[string]erp.User{},
		vehicles:    map[int]erp.Vehicle{},
		passwords:   map[string]string{},
		nextId:      1000,
		bankJournal: &erp.Journal{Id: 7, Name: "Bank", Type: "bank"},
	}
}

func (s *fakeStore) id() int {
	s.nextId++
	return s.nextId
}

func (s *fakeStore) ListProducts(_ context.Context, offset, limit int) ([]erp.Product, error) {
	out := make([]erp.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) GetProduct(_ context.Context, id int) (*erp.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, erp.ErrNotFound
	}
	return &p, nil
}

func (s *fakeStore) FindProductByCode(_ context.Context, code string) (*erp.Product, error) {
	for _, p := range s.products {
		if string(p.DefaultCode) == code {
			return &p, nil
		}
	}
	return nil, erp.ErrNotFound
}

func (s *fakeStore) ProductImage(_ context.Context, id int) ([]byte, error) {
	return nil, erp.ErrNotFound
}

func (s *fakeStore) FirstCustomer(_ context.Context) (*erp.Partner, error) {
	for _, p := range s.partners {
		if p.CustomerRank > 0 && p.ParentId.Id == 0 {
			return &p, nil
		}
	}
	return nil, erp.ErrNotFound
}

func (s *fakeStore) GetPartner(_ context.Context, id int) (*erp.Partner, error) {
	p, ok := s.partners[id]
	if !ok {
		return nil, erp.ErrNotFound
	}
	return &p, nil
}

func (s *fakeStore) FindDeliveryChild(_ context.Context, parentId int) (*erp.Partner, error) {
	for _, p := range s.partners {
		if p.ParentId.Id == parentId && string(p.Type) == "delivery" {
			return &p, nil
		}
	}
	return nil, erp.ErrNotFound
}

func (s *fakeStore) CreatePartner(_ context.Context, input erp.PartnerInput) (int, error) {
	if s.createPartnerErr != nil {
		return 0, s.createPartnerErr
	}
	id := s.id()
	s.partners[id] = erp.Partner{
		Id:           id,
		Name:         input.Name,
		Email:        erp.Text(input.Email),
		Phone:        erp.Text(input.Phone),
		Street:       erp.Text(input.Street),
		Type:         erp.Text(input.Type),
		ParentId:     erp.Many2One{Id: input.ParentId},
		CustomerRank: input.CustomerRank,
	}
	return id, nil
}

func (s *fakeStore) UpdatePartner(_ context.Context, id int, input erp.PartnerInput) error {
	p, ok := s.partners[id]
	if !ok {
		return erp.ErrNotFound
	}
	p.Name = input.Name
	p.Street = erp.Text(input.Street)
	p.Phone = erp.Text(input.Phone)
	p.Email = erp.Text(input.Email)
	s.partners[id] = p
	return nil
}

func (s *fakeStore) DeletePartner(_ context.Context, id int) error {
	delete(s.partners, id)
	s.deletedPartners = append(s.deletedPartners, id)
	return nil
}

func (s *fakeStore) CreateOrder(_ context.Context, customerId, shippingId int) (*erp.SalesOrder, error) {
	id := s.id()
	order := &erp.SalesOrder{
		Id:        id,
		Name:      "S" + strconv.Itoa(id),
		State:     "draft",
		PartnerId: erp.Many2One{Id: customerId, Name: s.partners[customerId].Name},
	}
	s.orders[id] = order
	return order, nil
}

func (s *fakeStore) GetOrder(_ context.Context, id int) (*erp.SalesOrder, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, erp.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *fakeStore) CreateOrderLine(_ context.Context, input erp.OrderLineInput) (int, error) {
	if s.createLineErr != nil {
		return 0, s.createLineErr
	}
	order, ok := s.orders[input.OrderId]
	if !ok {
		return 0, erp.ErrNotFound
	}
	id := s.id()
	line := erp.OrderLine{
		Id:            id,
		OrderId:       erp.Many2One{Id: input.OrderId},
		ProductId:     erp.Many2One{Id: input.ProductId, Name: input.Name},
		Name:          input.Name,
		Quantity:      input.Quantity,
		PriceUnit:     input.PriceUnit,
		PriceSubtotal: input.PriceUnit.Mul(input.Quantity),
	}
	s.lines[input.OrderId] = append(s.lines[input.OrderId], line)
	order.AmountTotal = order.AmountTotal.Add(line.PriceSubtotal)
	return id, nil
}

func (s *fakeStore) OrderLines(_ context.Context, orderId int) ([]erp.OrderLine, error) {
	return s.lines[orderId], nil
}

func (s *fakeStore) ConfirmOrder(_ context.Context, orderId int) error {
	if s.confirmOrderErr != nil {
		return s.confirmOrderErr
	}
	order, ok := s.orders[orderId]
	if !ok {
		return erp.ErrNotFound
	}
	order.State = "sale"
	// Confirmation spawns the delivery.
	s.pickings[orderId] = append(s.pickings[orderId], erp.Picking{Id: s.id(), State: "confirmed"})
	return nil
}

func (s *fakeStore) OrderPickings(_ context.Context, orderId int) ([]erp.Picking, error) {
	return s.pickings[orderId], nil
}

func (s *fakeStore) ConfirmPicking(_ context.Context, pickingId int) error { return nil }
func (s *fakeStore) AssignPicking(_ context.Context, pickingId int) error  { return nil }
func (s *fakeStore) CompleteMoves(_ context.Context, pickingId int) error  { return nil }

func (s *fakeStore) ValidatePicking(_ context.Context, pickingId int) error {
	if s.validateErr != nil {
		return s.validateErr
	}
	for orderId, pickings := range s.pickings {
		for i, p := range pickings {
			if p.Id == pickingId {
				s.pickings[orderId][i].State = erp.PickingStateDone
			}
		}
	}
	return nil
}

func (s *fakeStore) OrderInvoices(_ context.Context, orderId int) ([]erp.Invoice, error) {
	return s.invoices[orderId], nil
}

func (s *fakeStore) CreateInvoiceFromOrder(_ context.Context, orderId int) (*erp.Invoice, error) {
	s.createInvoiceCalls++
	if s.createInvoiceErr != nil {
		return nil, s.createInvoiceErr
	}
	order, ok := s.orders[orderId]
	if !ok {
		return nil, erp.ErrNotFound
	}
	id := s.id()
	invoice := erp.Invoice{
		Id:          id,
		Name:        erp.Text("INV/" + order.Name),
		State:       erp.InvoiceStateDraft,
		AmountTotal: order.AmountTotal,
	}
	s.invoices[orderId] = append(s.invoices[orderId], invoice)
	return &invoice, nil
}

func (s *fakeStore) PostInvoice(_ context.Context, invoiceId int) error {
	s.mutateInvoice(invoiceId, func(inv *erp.Invoice) { inv.State = erp.InvoiceStatePosted })
	return nil
}

func (s *fakeStore) FindBankJournal(_ context.Context) (*erp.Journal, error) {
	if s.bankJournal == nil {
		return nil, erp.ErrNotFound
	}
	return s.bankJournal, nil
}

func (s *fakeStore) RegisterPayment(_ context.Context, invoiceId, journalId int, amount decimal.Decimal, date time.Time) error {
	s.registerPayCalls++
	if s.registerPayErr != nil {
		return s.registerPayErr
	}
	s.mutateInvoice(invoiceId, func(inv *erp.Invoice) { inv.PaymentState = erp.Text(erp.InvoicePaymentStatePaid) })
	return nil
}

func (s *fakeStore) mutateInvoice(invoiceId int, fn func(*erp.Invoice)) {
	for orderId, invoices := range s.invoices {
		for i := range invoices {
			if invoices[i].Id == invoiceId {
				fn(&s.invoices[orderId][i])
			}
		}
	}
}

func (s *fakeStore) FindUserByLogin(_ context.Context, login string) (*erp.User, error) {
	u, ok := s.users[login]
	if !ok {
		return nil, erp.ErrNotFound
	}
	return &u, nil
}

func (s *fakeStore) PortalGroupId(_ context.Context) (int, error) {
	return 11, nil
}

func (s *fakeStore) CreateUser(_ context.Context, input erp.UserInput) (int, error) {
	if s.createUserErr != nil {
		return 0, s.createUserErr
	}
	id := s.id()
	s.users[input.Login] = erp.User{
		Id:        id,
		Login:     input.Login,
		Name:      input.Name,
		Active:    true,
		PartnerId: erp.Many2One{Id: input.PartnerId},
	}
	s.passwords[input.Login] = input.Password
	return id, nil
}

func (s *fakeStore) DeleteUser(_ context.Context, id int) error {
	for login, u := range s.users {
		if u.Id == id {
			delete(s.users, login)
			delete(s.passwords, login)
		}
	}
	s.deletedUsers = append(s.deletedUsers, id)
	return nil
}

func (s *fakeStore) SetPassword(_ context.Context, userId int, newPassword string) error {
	for login, u := range s.users {
		if u.Id == userId {
			s.passwords[login] = newPassword
			return nil
		}
	}
	return erp.ErrNotFound
}

func (s *fakeStore) CheckCredential(_ context.Context, login, password string) (bool, error) {
	stored, ok := s.passwords[login]
	return ok && stored == password, nil
}

func (s *fakeStore) FindVehicle(_ context.Context, registrationNumber string, ownerId int) (*erp.Vehicle, error) {
	for _, v := range s.vehicles {
		if v.RegistrationNumber == registrationNumber && v.OwnerId.Id == ownerId {
			return &v, nil
		}
	}
	return nil, erp.ErrNotFound
}

func (s *fakeStore) CreateVehicle(_ context.Context, input erp.VehicleInput) (int, error) {
	id := s.id()
	s.vehicles[id] = erp.Vehicle{
		Id:                 id,
		Name:               input.Name,
		RegistrationNumber: input.RegistrationNumber,
		Model:              erp.Text(input.Model),
		OwnerId:            erp.Many2One{Id: input.OwnerId},
	}
	return id, nil
}

func (s *fakeStore) DeleteVehicle(_ context.Context, id int) error {
	delete(s.vehicles, id)
	return nil
}

var _ erp.Store = (*fakeStore)(nil)

var errBoom = errors.New("boom")
