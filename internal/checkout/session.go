package checkout

import (
	"sync"
	"time"

	"github.com/giftnest/checkout-service/internal/backend"
	"github.com/giftnest/checkout-service/internal/coupon"
	"github.com/giftnest/checkout-service/internal/models"
)

// State of the payment dispatcher for one checkout session.
type State string

const (
	StateIdle                   State = "IDLE"
	StateApplyingCoupon         State = "APPLYING_COUPON"
	StateRequestingGatewayOrder State = "REQUESTING_GATEWAY_ORDER"
	StateAwaitingUserPayment    State = "AWAITING_USER_PAYMENT"
	StateSubmittingOrder        State = "SUBMITTING_ORDER"
	StateDone                   State = "DONE"
	StateFailed                 State = "FAILED"
)

// Failure describes the last failed attempt on a session. ContactSupport is
// set only for post-payment submission failures, in which case PaymentID
// carries the gateway reference the user quotes to support.
type Failure struct {
	Message        string `json:"message"`
	PaymentID      string `json:"paymentId,omitempty"`
	ContactSupport bool   `json:"contactSupport,omitempty"`
}

// Session is the in-memory state of one checkout attempt. Items are fixed at
// creation; address and coupon mutate until the order is placed. All field
// access goes through the owning Workflow, which serializes mutations.
type Session struct {
	ID        string
	User      models.User
	BuyNow    bool
	Items     []models.LineItem
	OrderID   string
	CreatedAt time.Time

	mu       sync.Mutex
	state    State
	address  *models.ShippingAddress
	coupon   *models.Coupon
	gateway  *backend.GatewayOrder
	failure  *Failure
	resolver *coupon.Resolver
}

// fail records a failed attempt. Post-payment failures keep the session
// blocked; everything else is user-retryable.
func (s *Session) fail(f Failure) {
	s.mu.Lock()
	s.state = StateFailed
	s.failure = &f
	s.gateway = nil
	s.mu.Unlock()
}

// complete marks the order as placed; the session is terminal.
func (s *Session) complete() {
	s.mu.Lock()
	s.state = StateDone
	s.failure = nil
	s.gateway = nil
	s.mu.Unlock()
}

// toIdle re-enables the triggering control after a fruitless attempt.
func (s *Session) toIdle() {
	s.mu.Lock()
	s.state = StateIdle
	s.gateway = nil
	s.mu.Unlock()
}

// Store holds active checkout sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Put registers a session under its ID.
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
}

// Get returns the session with the given ID.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	return s, ok
}

// Sweep removes sessions created before cutoff and reports how many went.
// A placed order survives on the backend; only the in-memory checkout state
// is dropped.
func (st *Store) Sweep(cutoff time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	evicted := 0
	for id, s := range st.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(st.sessions, id)
			evicted++
		}
	}
	return evicted
}
