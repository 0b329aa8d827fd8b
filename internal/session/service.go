package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-mayorista/internal/catalog"
	"github.com/noah-isme/backend-mayorista/internal/obs"
	"github.com/noah-isme/backend-mayorista/internal/order"
)

// ErrLineNotFound is returned when a line mutation targets a product that is
// not in the cart.
var ErrLineNotFound = errors.New("session: product is not in the cart")

// Locker serialises work on a key across every replica sharing the lock
// store.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service loads sessions from the store, applies one operation and saves them
// back. Every load-modify-save runs under the session lock.
type Service struct {
	store         Store
	catalog       *catalog.Store
	committer     order.Committer
	locker        Locker
	lockTTL       time.Duration
	submitTimeout time.Duration
	opts          Options
	now           func() time.Time
	logger        zerolog.Logger
}

// ServiceConfig groups Service dependencies. SubmitTimeout bounds a single
// commit; a submission claim older than twice that is treated as abandoned.
type ServiceConfig struct {
	Store         Store
	Catalog       *catalog.Store
	Committer     order.Committer
	Locker        Locker
	LockTTL       time.Duration
	SubmitTimeout time.Duration
	Options       Options
	Logger        zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("session: catalog is required")
	}
	if cfg.Committer == nil {
		return nil, errors.New("session: committer is required")
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	timeout := cfg.SubmitTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	now := cfg.Options.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:         cfg.Store,
		catalog:       cfg.Catalog,
		committer:     cfg.Committer,
		locker:        cfg.Locker,
		lockTTL:       ttl,
		submitTimeout: timeout,
		opts:          cfg.Options,
		now:           now,
		logger:        cfg.Logger,
	}, nil
}

// Create starts an empty session.
func (s *Service) Create(ctx context.Context) (View, error) {
	sess := New(uuid.NewString(), s.catalog.PriceLists(), s.opts)
	if err := s.store.Save(ctx, sess.State()); err != nil {
		return View{}, err
	}
	return sess.View(), nil
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return sess.View(), nil
}

// SelectClient sets the session client.
func (s *Service) SelectClient(ctx context.Context, id, clientID string) (View, error) {
	client, err := s.catalog.Client(clientID)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, id, "select_client", func(sess *Session) error {
		previous, had := sess.Client()
		if sess.SelectClient(&client) && had {
			s.logger.Info().Str("session_id", id).Str("from", previous.ID).Str("to", client.ID).Msg("session_client_changed")
		}
		return nil
	})
}

// ClearClient removes the session client and empties the cart.
func (s *Service) ClearClient(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, "clear_client", func(sess *Session) error {
		sess.ClearClient()
		return nil
	})
}

// AddLine adds one pack of productID.
func (s *Service) AddLine(ctx context.Context, id, productID string) (View, error) {
	p, err := s.catalog.Product(productID)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, id, "add", func(sess *Session) error {
		sess.AddProduct(p)
		return nil
	})
}

// Increment adds one pack to an existing line.
func (s *Service) Increment(ctx context.Context, id, productID string) (View, error) {
	return s.mutate(ctx, id, "increment", lineOp(productID, (*Session).Increment))
}

// Decrement removes one pack from an existing line.
func (s *Service) Decrement(ctx context.Context, id, productID string) (View, error) {
	return s.mutate(ctx, id, "decrement", lineOp(productID, (*Session).Decrement))
}

// RemoveLine drops an existing line.
func (s *Service) RemoveLine(ctx context.Context, id, productID string) (View, error) {
	return s.mutate(ctx, id, "remove", lineOp(productID, (*Session).Remove))
}

func lineOp(productID string, op func(*Session, string) bool) func(*Session) error {
	return func(sess *Session) error {
		if !op(sess, productID) {
			return ErrLineNotFound
		}
		return nil
	}
}

// Submit commits the session cart as an order attributed to sellerID. The
// submission is claimed on the persisted state before the commit starts, so a
// second Submit or a cart mutation on any replica is refused with
// ErrSubmissionInFlight until the commit finishes.
func (s *Service) Submit(ctx context.Context, id, sellerID string) (order.Order, error) {
	ctx, span := obs.StartSpan(ctx, "session.submit", attribute.String("mayorista.session_id", id))
	defer span.End()
	committed, err := s.submit(ctx, id, sellerID)
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("mayorista.order_id", committed.ID))
		obs.ObserveOrderSubmitted("committed", committed.Total)
		s.logger.Info().
			Str("session_id", id).
			Str("order_id", committed.ID).
			Str("seller_id", committed.SellerID).
			Int64("total", committed.Total).
			Int("items", committed.Items).
			Msg("order_submitted")
		return committed, nil
	case errors.Is(err, ErrNotReady):
		obs.ObserveOrderSubmitted("not_ready", 0)
	case errors.Is(err, ErrSubmissionInFlight):
		obs.ObserveOrderSubmitted("in_flight", 0)
	case errors.Is(err, ErrNotFound):
	default:
		span.SetStatus(codes.Error, err.Error())
		obs.ObserveOrderSubmitted("failed", 0)
		s.logger.Error().Err(err).Str("session_id", id).Msg("order_submit_failed")
	}
	return order.Order{}, err
}

func (s *Service) submit(ctx context.Context, id, sellerID string) (order.Order, error) {
	var sess *Session
	err := s.withSession(ctx, id, func(ctx context.Context) error {
		st, err := s.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if s.inFlight(st) {
			return ErrSubmissionInFlight
		}
		restored, err := Restore(st, s.catalog, s.opts)
		if err != nil {
			return err
		}
		if !restored.Ready() {
			return ErrNotReady
		}
		claimedAt := s.now()
		st.SubmittingSince = &claimedAt
		if err := s.store.Save(ctx, st); err != nil {
			return err
		}
		sess = restored
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	commitCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()
	o, commitErr := sess.Submit(commitCtx, order.AssignSeller(sellerID, s.committer))

	// sess.State carries no claim, so saving it releases the submission.
	bg := context.WithoutCancel(ctx)
	saveErr := s.withSession(bg, id, func(ctx context.Context) error {
		return s.store.Save(ctx, sess.State())
	})
	if commitErr != nil {
		if saveErr != nil {
			s.logger.Warn().Err(saveErr).Str("session_id", id).Msg("session_release_failed")
		}
		return order.Order{}, commitErr
	}
	if saveErr != nil {
		s.logger.Warn().Err(saveErr).Str("session_id", id).Str("order_id", o.ID).Msg("session_save_after_submit_failed")
		// the committed cart must not be submittable again
		if err := s.store.Delete(bg, id); err != nil {
			s.logger.Error().Err(err).Str("session_id", id).Str("order_id", o.ID).Msg("session_discard_failed")
		}
	}
	return o, nil
}

func (s *Service) inFlight(st State) bool {
	if st.SubmittingSince == nil {
		return false
	}
	return s.now().Sub(*st.SubmittingSince) < 2*s.submitTimeout
}

func (s *Service) withSession(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, "session:"+id, s.lockTTL, fn)
}

func (s *Service) load(ctx context.Context, id string) (*Session, error) {
	st, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return Restore(st, s.catalog, s.opts)
}

func (s *Service) mutate(ctx context.Context, id, op string, fn func(*Session) error) (View, error) {
	var view View
	result := "ok"
	err := s.withSession(ctx, id, func(ctx context.Context) error {
		st, err := s.store.Load(ctx, id)
		if err != nil {
			result = "error"
			return err
		}
		if s.inFlight(st) {
			result = "rejected"
			return ErrSubmissionInFlight
		}
		sess, err := Restore(st, s.catalog, s.opts)
		if err != nil {
			result = "error"
			return err
		}
		if err := fn(sess); err != nil {
			result = "rejected"
			return err
		}
		if err := s.store.Save(ctx, sess.State()); err != nil {
			result = "error"
			return err
		}
		view = sess.View()
		return nil
	})
	if err != nil && result == "ok" {
		result = "error"
	}
	obs.ObserveCartMutation(op, result)
	if err != nil {
		return View{}, err
	}
	return view, nil
}
