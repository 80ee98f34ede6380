package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/aarvika/storefront-backend/internal/orders"
	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/aarvika/storefront-backend/pkg/enums"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/aarvika/storefront-backend/pkg/logger"
	"github.com/aarvika/storefront-backend/pkg/mailer"
	"github.com/aarvika/storefront-backend/pkg/razorpay"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Snapshot keys under the user's scope.
const (
	stepKey         = "checkout_step"
	shippingKey     = "checkout_shipping"
	pendingOrderKey = "checkout_pending_order"
	orderPlacedKey  = "order_placed"
	completedKey    = "checkout_completed"
)

const (
	defaultStepMaxAge     = 2 * time.Hour
	defaultPaymentLockTTL = 10 * time.Second
)

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Store          StateStore
	Cart           CartAccess
	OrderRepo      orders.OrderRepository
	Gateway        Gateway
	Mail           Mailer
	Metrics        OutcomeCounter
	Guard          MutationGuard
	Logger         *logger.Logger
	StepMaxAge     time.Duration
	PaymentLockTTL time.Duration
}

// Service drives the three-step checkout flow: shipping, payment, success.
type Service interface {
	State(ctx context.Context, userID uuid.UUID) (StateDTO, error)
	SubmitShipping(ctx context.Context, userID uuid.UUID, input ShippingInput) (StateDTO, error)
	InitiatePayment(ctx context.Context, userID uuid.UUID) (*PaymentIntentDTO, error)
	CompletePayment(ctx context.Context, userID uuid.UUID, input CompletePaymentInput) (StateDTO, error)
	Abandon(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	store      StateStore
	cart       CartAccess
	orderRepo  orders.OrderRepository
	gateway    Gateway
	mail       Mailer
	metrics    OutcomeCounter
	guard      MutationGuard
	logg       *logger.Logger
	validate   *validator.Validate
	stepMaxAge time.Duration
	lockTTL    time.Duration
}

// NewService builds a checkout service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state store is required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart access is required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order repo is required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment gateway is required")
	}

	stepMaxAge := params.StepMaxAge
	if stepMaxAge <= 0 {
		stepMaxAge = defaultStepMaxAge
	}
	lockTTL := params.PaymentLockTTL
	if lockTTL <= 0 {
		lockTTL = defaultPaymentLockTTL
	}

	return &service{
		store:      params.Store,
		cart:       params.Cart,
		orderRepo:  params.OrderRepo,
		gateway:    params.Gateway,
		mail:       params.Mail,
		metrics:    params.Metrics,
		guard:      params.Guard,
		logg:       params.Logger,
		validate:   validator.New(),
		stepMaxAge: stepMaxAge,
		lockTTL:    lockTTL,
	}, nil
}

// State returns the resumable checkout position. Stale snapshots expire on
// read, so an abandoned checkout quietly restarts at the shipping step.
func (s *service) State(ctx context.Context, userID uuid.UUID) (StateDTO, error) {
	if userID == uuid.Nil {
		return StateDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	state := s.loadState(ctx, userID)

	cartDTO, err := s.cart.List(ctx, userID)
	if err != nil {
		return StateDTO{}, err
	}
	if cartDTO.ItemCount == 0 && !state.OrderPlaced {
		state.ReturnToCart = true
	}
	return state, nil
}

// SubmitShipping validates the address form and advances to the payment step.
func (s *service) SubmitShipping(ctx context.Context, userID uuid.UUID, input ShippingInput) (StateDTO, error) {
	if userID == uuid.Nil {
		return StateDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.validate.Struct(input); err != nil {
		return StateDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping details").
			WithDetails(fieldErrors(err))
	}

	cartDTO, err := s.cart.List(ctx, userID)
	if err != nil {
		return StateDTO{}, err
	}
	if cartDTO.ItemCount == 0 {
		return StateDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	scope := userID.String()
	s.store.Save(ctx, scope, shippingKey, input)
	s.store.Save(ctx, scope, stepKey, enums.CheckoutStepPayment)

	return s.loadState(ctx, userID), nil
}

// InitiatePayment snapshots the cart into a pending order and registers it
// with the gateway. The cart itself stays intact until payment is verified.
func (s *service) InitiatePayment(ctx context.Context, userID uuid.UUID) (*PaymentIntentDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	scope := userID.String()
	var shipping ShippingInput
	if !s.store.Load(ctx, scope, shippingKey, s.stepMaxAge, &shipping) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping details are required before payment")
	}

	cartDTO, err := s.cart.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cartDTO.ItemCount == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	order := &models.Order{
		UserID:           userID,
		TotalAmount:      cartDTO.Subtotal,
		Status:           enums.OrderStatusPending,
		PaymentStatus:    enums.PaymentStatusPending,
		PaymentMethod:    "razorpay",
		ShippingName:     shipping.Name,
		ShippingEmail:    shipping.Email,
		ShippingPhone:    shipping.Phone,
		ShippingLine1:    shipping.Line1,
		ShippingLine2:    shipping.Line2,
		ShippingCity:     shipping.City,
		ShippingState:    shipping.State,
		ShippingPostcode: shipping.Postcode,
		Notes:            shipping.Notes,
	}
	items := make([]models.OrderItem, 0, len(cartDTO.Items))
	for _, line := range cartDTO.Items {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Title:     line.Title,
			Size:      line.Size,
			Color:     line.Color,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	if _, err := s.orderRepo.Create(ctx, order, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pending order")
	}

	amountPaise := cartDTO.Subtotal.Shift(2).IntPart()
	gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		AmountPaise: amountPaise,
		Currency:    "INR",
		Receipt:     order.ID.String(),
		Notes:       map[string]string{"user_id": userID.String()},
	})
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.SetGatewayOrder(ctx, order.ID, gatewayOrder.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach gateway order")
	}

	s.store.Save(ctx, scope, pendingOrderKey, order.ID)

	return &PaymentIntentDTO{
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrder.ID,
		GatewayKeyID:   s.gateway.KeyID(),
		AmountPaise:    amountPaise,
		Currency:       "INR",
		TotalFormatted: cartDTO.SubtotalFormatted,
	}, nil
}

// CompletePayment verifies the gateway callback and finishes the flow. The
// success flags are persisted BEFORE the cart is cleared: the success page
// checks the cart, and clearing first would let the empty-cart redirect win
// the race against the step-3 render.
func (s *service) CompletePayment(ctx context.Context, userID uuid.UUID, input CompletePaymentInput) (StateDTO, error) {
	if userID == uuid.Nil {
		return StateDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.validate.Struct(input); err != nil {
		return StateDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment callback").
			WithDetails(fieldErrors(err))
	}

	release, err := s.acquireLock(ctx, userID)
	if err != nil {
		return StateDTO{}, err
	}
	defer release()

	order, err := s.orderRepo.FindByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StateDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return StateDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	// never confirm another shopper's order, and don't reveal it exists
	if order.UserID != userID {
		return StateDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return StateDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "order is not awaiting payment")
	}

	if !s.gateway.VerifySignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		if err := s.orderRepo.MarkPaymentFailed(ctx, order.ID); err != nil {
			s.warn(ctx, userID, "mark payment failed: "+err.Error())
		}
		s.countOutcome("failed")
		return StateDTO{}, pkgerrors.New(pkgerrors.CodePayment, "payment signature verification failed")
	}

	if err := s.orderRepo.MarkPaid(ctx, order.ID, input.GatewayPaymentID); err != nil {
		return StateDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
	}

	// Flags first, cart clear second. Do not reorder.
	scope := userID.String()
	s.store.Save(ctx, scope, stepKey, enums.CheckoutStepSuccess)
	s.store.Save(ctx, scope, orderPlacedKey, true)
	s.store.Save(ctx, scope, completedKey, true)
	s.store.Remove(ctx, scope, pendingOrderKey)

	if err := s.cart.Clear(ctx, userID); err != nil {
		s.warn(ctx, userID, "clear cart after payment: "+err.Error())
	}
	s.countOutcome("completed")

	s.sendConfirmation(ctx, order, input.GatewayPaymentID)

	return s.loadState(ctx, userID), nil
}

// Abandon cancels any pending order and resets the checkout position.
func (s *service) Abandon(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	scope := userID.String()
	var pendingID uuid.UUID
	if s.store.Load(ctx, scope, pendingOrderKey, 0, &pendingID) && pendingID != uuid.Nil {
		if err := s.orderRepo.Cancel(ctx, pendingID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel pending order")
		}
	}

	s.store.Remove(ctx, scope, stepKey)
	s.store.Remove(ctx, scope, shippingKey)
	s.store.Remove(ctx, scope, pendingOrderKey)
	s.store.Remove(ctx, scope, orderPlacedKey)
	s.store.Remove(ctx, scope, completedKey)
	s.countOutcome("abandoned")
	return nil
}

func (s *service) loadState(ctx context.Context, userID uuid.UUID) StateDTO {
	scope := userID.String()
	state := StateDTO{Step: enums.CheckoutStepShipping}

	var rawStep int
	if s.store.Load(ctx, scope, stepKey, s.stepMaxAge, &rawStep) {
		// a corrupt or out-of-range snapshot restarts the flow at shipping
		if step, err := enums.ParseCheckoutStep(rawStep); err == nil {
			state.Step = step
		}
	}
	var shipping ShippingInput
	if s.store.Load(ctx, scope, shippingKey, s.stepMaxAge, &shipping) {
		state.Shipping = &shipping
	}
	var placed bool
	if s.store.Load(ctx, scope, orderPlacedKey, s.stepMaxAge, &placed) {
		state.OrderPlaced = placed
	}
	var completed bool
	if s.store.Load(ctx, scope, completedKey, s.stepMaxAge, &completed) {
		state.CheckoutCompleted = completed
	}
	return state
}

func (s *service) acquireLock(ctx context.Context, userID uuid.UUID) (func(), error) {
	if s.guard == nil {
		return func() {}, nil
	}
	key := s.guard.InflightKey("checkout", userID.String())
	acquired, err := s.guard.SetNX(ctx, key, "1", s.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment is already being processed")
	}
	return func() { _ = s.guard.Del(ctx, key) }, nil
}

func (s *service) sendConfirmation(ctx context.Context, order *models.Order, gatewayPaymentID string) {
	if s.mail == nil {
		return
	}
	err := s.mail.SendOrderConfirmation(ctx, mailer.OrderConfirmation{
		To:          order.ShippingEmail,
		OrderNumber: order.ID.String(),
		Name:        order.ShippingName,
		Total:       order.TotalAmount.StringFixed(2),
	})
	if err != nil {
		s.warn(ctx, order.UserID, "send order confirmation: "+err.Error())
	}
}

func (s *service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.IncCheckoutOutcome(outcome)
	}
}

func (s *service) warn(ctx context.Context, userID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithUserID(ctx, userID.String())
	s.logg.Warn(ctx, msg)
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
