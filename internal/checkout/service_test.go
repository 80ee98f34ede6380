package checkout

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aarvika/storefront-backend/internal/cart"
	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/aarvika/storefront-backend/pkg/enums"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/aarvika/storefront-backend/pkg/mailer"
	"github.com/aarvika/storefront-backend/pkg/razorpay"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// eventLog records the order of state writes and cart clears so tests can
// assert on sequencing, not just final state.
type eventLog struct {
	events []string
}

func (l *eventLog) record(event string) {
	l.events = append(l.events, event)
}

func (l *eventLog) indexOf(event string) int {
	for i, e := range l.events {
		if e == event {
			return i
		}
	}
	return -1
}

type fakeStore struct {
	log  *eventLog
	data map[string][]byte
}

func newFakeStore(log *eventLog) *fakeStore {
	return &fakeStore{log: log, data: map[string][]byte{}}
}

func (f *fakeStore) Save(ctx context.Context, scope, key string, value any) {
	raw, _ := json.Marshal(value)
	f.data[scope+":"+key] = raw
	if f.log != nil {
		f.log.record("save:" + key)
	}
}

func (f *fakeStore) Load(ctx context.Context, scope, key string, maxAge time.Duration, dest any) bool {
	raw, ok := f.data[scope+":"+key]
	if !ok {
		return false
	}
	if dest != nil {
		_ = json.Unmarshal(raw, dest)
	}
	return true
}

func (f *fakeStore) Remove(ctx context.Context, scope, key string) {
	delete(f.data, scope+":"+key)
}

type fakeCart struct {
	log   *eventLog
	items []cart.LineDTO
}

func (f *fakeCart) List(ctx context.Context, userID uuid.UUID) (cart.CartDTO, error) {
	subtotal := decimal.Zero
	count := 0
	for _, line := range f.items {
		subtotal = subtotal.Add(line.LineTotal)
		count += line.Quantity
	}
	return cart.CartDTO{Items: f.items, ItemCount: count, Subtotal: subtotal, SubtotalFormatted: "₹" + subtotal.StringFixed(0)}, nil
}

func (f *fakeCart) Clear(ctx context.Context, userID uuid.UUID) error {
	f.items = nil
	if f.log != nil {
		f.log.record("cart:clear")
	}
	return nil
}

type fakeOrderRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Order, error) {
	order.ID = uuid.New()
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrderRepo) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok || order.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	for _, order := range f.orders {
		if order.GatewayOrderID != nil && *order.GatewayOrderID == gatewayOrderID {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return nil, nil
}

func (f *fakeOrderRepo) SetGatewayOrder(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	f.orders[id].GatewayOrderID = &gatewayOrderID
	return nil
}

func (f *fakeOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string) error {
	order := f.orders[id]
	order.Status = enums.OrderStatusConfirmed
	order.PaymentStatus = enums.PaymentStatusPaid
	order.GatewayPaymentID = &gatewayPaymentID
	return nil
}

func (f *fakeOrderRepo) MarkPaymentFailed(ctx context.Context, id uuid.UUID) error {
	f.orders[id].PaymentStatus = enums.PaymentStatusFailed
	return nil
}

func (f *fakeOrderRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	if order, ok := f.orders[id]; ok && order.Status == enums.OrderStatusPending {
		order.Status = enums.OrderStatusCancelled
	}
	return nil
}

type fakeGateway struct {
	rejectSignature bool
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	return &razorpay.Order{ID: "order_gw_1", AmountPaise: req.AmountPaise, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return !f.rejectSignature
}

func (f *fakeGateway) KeyID() string { return "rzp_test_abc123" }

type recordingMailer struct {
	sent []mailer.OrderConfirmation
}

func (r *recordingMailer) SendOrderConfirmation(ctx context.Context, msg mailer.OrderConfirmation) error {
	r.sent = append(r.sent, msg)
	return nil
}

func validShipping() ShippingInput {
	return ShippingInput{
		Name:     "Meera Sharma",
		Email:    "meera@example.com",
		Phone:    "9876543210",
		Line1:    "12 MG Road",
		City:     "Jaipur",
		State:    "Rajasthan",
		Postcode: "302001",
	}
}

func sareeLine() cart.LineDTO {
	price := decimal.NewFromInt(12999)
	return cart.LineDTO{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Title:     "Banarasi Silk Saree",
		Quantity:  1,
		UnitPrice: price,
		LineTotal: price,
	}
}

type fixture struct {
	svc     Service
	store   *fakeStore
	cart    *fakeCart
	repo    *fakeOrderRepo
	gw      *fakeGateway
	mail    *recordingMailer
	log     *eventLog
	userID  uuid.UUID
	orderID uuid.UUID
}

func newFixture(t *testing.T, lines ...cart.LineDTO) *fixture {
	t.Helper()
	log := &eventLog{}
	store := newFakeStore(log)
	cartAccess := &fakeCart{log: log, items: lines}
	repo := newFakeOrderRepo()
	gw := &fakeGateway{}
	mail := &recordingMailer{}

	svc, err := NewService(ServiceParams{
		Store:     store,
		Cart:      cartAccess,
		OrderRepo: repo,
		Gateway:   gw,
		Mail:      mail,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, store: store, cart: cartAccess, repo: repo, gw: gw, mail: mail, log: log, userID: uuid.New()}
}

func (f *fixture) completeInput(t *testing.T) CompletePaymentInput {
	t.Helper()
	intent, err := f.svc.InitiatePayment(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("initiate payment: %v", err)
	}
	f.orderID = intent.OrderID
	return CompletePaymentInput{
		GatewayOrderID:   intent.GatewayOrderID,
		GatewayPaymentID: "pay_123",
		Signature:        "sig",
	}
}

func TestSubmitShippingValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sareeLine())
	bad := validShipping()
	bad.Postcode = "30-200"

	_, err := f.svc.SubmitShipping(context.Background(), f.userID, bad)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Details() == nil {
		t.Fatal("expected field details on validation error")
	}
}

func TestSubmitShippingRequiresNonEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.SubmitShipping(context.Background(), f.userID, validShipping())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitShippingAdvancesToPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sareeLine())
	state, err := f.svc.SubmitShipping(context.Background(), f.userID, validShipping())
	if err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	if state.Step != enums.CheckoutStepPayment {
		t.Fatalf("expected payment step, got %s", state.Step)
	}
	if state.Shipping == nil || state.Shipping.City != "Jaipur" {
		t.Fatalf("shipping not persisted: %+v", state.Shipping)
	}
}

func TestInitiatePaymentRequiresShipping(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sareeLine())
	_, err := f.svc.InitiatePayment(context.Background(), f.userID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompletePaymentPersistsFlagsBeforeClearingCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sareeLine())
	if _, err := f.svc.SubmitShipping(context.Background(), f.userID, validShipping()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	input := f.completeInput(t)

	state, err := f.svc.CompletePayment(context.Background(), f.userID, input)
	if err != nil {
		t.Fatalf("complete payment: %v", err)
	}
	if state.Step != enums.CheckoutStepSuccess {
		t.Fatalf("expected success step, got %s", state.Step)
	}
	if !state.OrderPlaced || !state.CheckoutCompleted {
		t.Fatalf("expected completion flags set, got %+v", state)
	}
	if state.ReturnToCart {
		t.Fatal("success state must not redirect back to cart")
	}

	clearIdx := f.log.indexOf("cart:clear")
	placedIdx := f.log.indexOf("save:" + orderPlacedKey)
	stepIdx := f.log.indexOf("save:" + stepKey)
	if clearIdx == -1 || placedIdx == -1 {
		t.Fatalf("missing events: %v", f.log.events)
	}
	if placedIdx > clearIdx || stepIdx > clearIdx {
		t.Fatalf("flags must be written before the cart clears: %v", f.log.events)
	}

	if len(f.mail.sent) != 1 || f.mail.sent[0].To != "meera@example.com" {
		t.Fatalf("expected confirmation email, got %+v", f.mail.sent)
	}
}

func TestCompletePaymentRejectsBadSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sareeLine())
	if _, err := f.svc.SubmitShipping(context.Background(), f.userID, validShipping()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	input := f.completeInput(t)
	f.gw.rejectSignature = true

	_, err := f.svc.CompletePayment(context.Background(), f.userID, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodePayment {
		t.Fatalf("expected payment error, got %v", err)
	}

	order := f.repo.orders[f.orderID]
	if order.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("expected payment marked failed, got %s", order.PaymentStatus)
	}
	if len(f.cart.items) == 0 {
		t.Fatal("cart must survive a failed payment")
	}

	state, err := f.svc.State(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Step != enums.CheckoutStepPayment {
		t.Fatalf("expected to stay on payment step, got %s", state.Step)
	}
}

func TestCompletePaymentTwiceConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sareeLine())
	if _, err := f.svc.SubmitShipping(context.Background(), f.userID, validShipping()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	input := f.completeInput(t)

	if _, err := f.svc.CompletePayment(context.Background(), f.userID, input); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	_, err := f.svc.CompletePayment(context.Background(), f.userID, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on second completion, got %v", err)
	}
}

func TestCompletePaymentRejectsForeignOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sareeLine())
	if _, err := f.svc.SubmitShipping(context.Background(), f.userID, validShipping()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	input := f.completeInput(t)

	_, err := f.svc.CompletePayment(context.Background(), uuid.New(), input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for another shopper's callback, got %v", err)
	}
	if f.repo.orders[f.orderID].Status != enums.OrderStatusPending {
		t.Fatal("order must stay pending after a foreign callback")
	}
}

func TestCompletePaymentUnknownGatewayOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sareeLine())
	input := CompletePaymentInput{
		GatewayOrderID:   "order_gw_missing",
		GatewayPaymentID: "pay_123",
		Signature:        "sig",
	}
	_, err := f.svc.CompletePayment(context.Background(), f.userID, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown gateway order, got %v", err)
	}
}

func TestStateResetsOnCorruptStepSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sareeLine())
	f.store.Save(context.Background(), f.userID.String(), stepKey, 9)

	state, err := f.svc.State(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Step != enums.CheckoutStepShipping {
		t.Fatalf("expected fallback to shipping step, got %s", state.Step)
	}
}

func TestStateReturnToCartHint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	state, err := f.svc.State(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if !state.ReturnToCart {
		t.Fatal("empty cart without an order should bounce back to cart")
	}
}

func TestAbandonCancelsPendingOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, sareeLine())
	if _, err := f.svc.SubmitShipping(context.Background(), f.userID, validShipping()); err != nil {
		t.Fatalf("submit shipping: %v", err)
	}
	f.completeInput(t)

	if err := f.svc.Abandon(context.Background(), f.userID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if f.repo.orders[f.orderID].Status != enums.OrderStatusCancelled {
		t.Fatalf("expected pending order cancelled, got %s", f.repo.orders[f.orderID].Status)
	}

	state, err := f.svc.State(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Step != enums.CheckoutStepShipping {
		t.Fatalf("expected reset to shipping step, got %s", state.Step)
	}
}
