package transfer_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/mayorista-api/internal/application/transfer"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
	"github.com/jhoicas/mayorista-api/internal/domain/repository"
)

// memDB base de datos en memoria para los tests del servicio. Una transacción toma el
// mutex completo (equivale a bloquear todas las filas) y trabaja sobre una copia que se
// publica sólo en Commit.
type memDB struct {
	mu sync.Mutex
	st *memState

	failMovementWrites bool
}

type memState struct {
	transfers map[string]entity.TransferRequest
	pools     map[entity.PoolKey]decimal.Decimal
	movements []entity.StockMovement
	users     map[string]entity.User
	products  map[string]entity.Product
	nextMovID int64
}

var errDiskFull = errors.New("disco lleno")

func newMemDB() *memDB {
	return &memDB{st: &memState{
		transfers: map[string]entity.TransferRequest{},
		pools:     map[entity.PoolKey]decimal.Decimal{},
		users:     map[string]entity.User{},
		products:  map[string]entity.Product{},
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		transfers: make(map[string]entity.TransferRequest, len(s.transfers)),
		pools:     make(map[entity.PoolKey]decimal.Decimal, len(s.pools)),
		movements: append([]entity.StockMovement(nil), s.movements...),
		users:     s.users,
		products:  s.products,
		nextMovID: s.nextMovID,
	}
	for k, v := range s.transfers {
		c.transfers[k] = v
	}
	for k, v := range s.pools {
		c.pools[k] = v
	}
	return c
}

// ── fixtures ─────────────────────────────────────────────────────────────────

func (db *memDB) addUser(id, name, role string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.st.users[id] = entity.User{ID: id, Name: name, Role: role, Status: entity.UserStatusActive}
}

func (db *memDB) setUserStatus(id, status string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := db.st.users[id]
	u.Status = status
	db.st.users[id] = u
}

func (db *memDB) addProduct(id string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.st.products[id] = entity.Product{ID: id, SKU: id, Name: "Producto " + id}
}

func (db *memDB) setStock(productID, ownerID string, qty int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.st.pools[entity.PoolKey{ProductID: productID, OwnerID: ownerID}] = decimal.NewFromInt(qty)
}

func (db *memDB) stockOf(productID, ownerID string) decimal.Decimal {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.st.pools[entity.PoolKey{ProductID: productID, OwnerID: ownerID}]
}

func (db *memDB) hasPool(productID, ownerID string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.st.pools[entity.PoolKey{ProductID: productID, OwnerID: ownerID}]
	return ok
}

func (db *memDB) movementsOf(transferID string) []entity.StockMovement {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []entity.StockMovement
	for _, m := range db.st.movements {
		if m.TransferID == transferID {
			out = append(out, m)
		}
	}
	return out
}

func (db *memDB) transfer(id string) entity.TransferRequest {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.st.transfers[id]
}

// ── TxRunner ─────────────────────────────────────────────────────────────────

var _ transfer.TxRunner = (*memDB)(nil)

func (db *memDB) Run(_ context.Context, fn func(transfer.TxRepos) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	work := db.st.clone()
	if err := fn(db.txRepos(work)); err != nil {
		return err
	}
	db.st = work
	return nil
}

func (db *memDB) txRepos(st *memState) transfer.TxRepos {
	b := memBase{db: db, st: func() *memState { return st }, inTx: true}
	repos := transfer.TxRepos{
		Transfers: &memTransfers{b},
		Stock:     &memStock{b},
		Movements: &memMovements{b},
	}
	repos.Savepoint = func(fn func(transfer.TxRepos) error) error {
		snap := st.clone()
		if err := fn(db.txRepos(st)); err != nil {
			*st = *snap
			return err
		}
		return nil
	}
	return repos
}

// base fuera de transacción: lee y escribe el estado confirmado.
func (db *memDB) base() memBase {
	return memBase{db: db, st: func() *memState { return db.st }}
}

// ── repositorios ─────────────────────────────────────────────────────────────

type memBase struct {
	db   *memDB
	st   func() *memState
	inTx bool
}

func (b memBase) lock() func() {
	if b.inTx {
		return func() {}
	}
	b.db.mu.Lock()
	return b.db.mu.Unlock
}

type (
	memTransfers struct{ memBase }
	memStock     struct{ memBase }
	memMovements struct{ memBase }
	memUsers     struct{ memBase }
	memProducts  struct{ memBase }
)

var (
	_ repository.TransferRepository      = (*memTransfers)(nil)
	_ repository.StockRepository         = (*memStock)(nil)
	_ repository.StockMovementRepository = (*memMovements)(nil)
	_ repository.UserRepository          = (*memUsers)(nil)
	_ repository.ProductRepository       = (*memProducts)(nil)
)

func (r *memTransfers) Create(_ context.Context, t *entity.TransferRequest) error {
	defer r.lock()()
	r.st().transfers[t.ID] = *t
	return nil
}

func (r *memTransfers) GetByID(_ context.Context, id string) (*entity.TransferRequest, error) {
	defer r.lock()()
	t, ok := r.st().transfers[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memTransfers) GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *memTransfers) SaveConfirmation(_ context.Context, id string, role entity.Role, c entity.Confirmation) error {
	defer r.lock()()
	t := r.st().transfers[id]
	if role == entity.RoleInitiator {
		t.InitiatorConfirm = &c
	} else {
		t.CounterpartyConfirm = &c
	}
	r.st().transfers[id] = t
	return nil
}

func (r *memTransfers) MarkCompleted(_ context.Context, id string, at time.Time) error {
	defer r.lock()()
	t := r.st().transfers[id]
	t.CompletedAt = &at
	r.st().transfers[id] = t
	return nil
}

func (r *memTransfers) MarkSettlementFailed(_ context.Context, id string, at time.Time, reason string) error {
	defer r.lock()()
	t := r.st().transfers[id]
	t.SettlementFailedAt = &at
	t.SettlementError = reason
	r.st().transfers[id] = t
	return nil
}

func (r *memTransfers) ListPendingFor(_ context.Context, partyID string, now time.Time) ([]*entity.TransferRequest, error) {
	defer r.lock()()
	var out []*entity.TransferRequest
	for _, t := range r.st().transfers {
		t := t
		if t.InitiatorPartyID != partyID && t.CounterpartyID != partyID {
			continue
		}
		if t.CompletedAt != nil || now.After(t.ExpiresAt) {
			continue
		}
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memStock) Get(_ context.Context, productID, ownerID string) (*entity.StockPool, error) {
	defer r.lock()()
	q := r.st().pools[entity.PoolKey{ProductID: productID, OwnerID: ownerID}]
	return &entity.StockPool{ProductID: productID, OwnerID: ownerID, Quantity: q}, nil
}

func (r *memStock) LockPools(_ context.Context, keys []entity.PoolKey) (map[entity.PoolKey]*entity.StockPool, error) {
	defer r.lock()()
	out := make(map[entity.PoolKey]*entity.StockPool, len(keys))
	for _, k := range keys {
		q, ok := r.st().pools[k]
		if !ok {
			q = decimal.Zero
			r.st().pools[k] = q
		}
		out[k] = &entity.StockPool{ProductID: k.ProductID, OwnerID: k.OwnerID, Quantity: q}
	}
	return out, nil
}

func (r *memStock) SetQuantity(_ context.Context, key entity.PoolKey, quantity decimal.Decimal) error {
	defer r.lock()()
	if quantity.IsNegative() {
		return errors.New("check constraint: quantity >= 0")
	}
	r.st().pools[key] = quantity
	return nil
}

func (r *memMovements) Create(_ context.Context, m *entity.StockMovement) error {
	defer r.lock()()
	if r.db.failMovementWrites {
		return errDiskFull
	}
	st := r.st()
	st.nextMovID++
	m.ID = st.nextMovID
	st.movements = append(st.movements, *m)
	return nil
}

func (r *memMovements) ListByTransfer(_ context.Context, transferID string) ([]*entity.StockMovement, error) {
	defer r.lock()()
	var out []*entity.StockMovement
	for _, m := range r.st().movements {
		if m.TransferID == transferID {
			m := m
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	defer r.lock()()
	u, ok := r.st().users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memUsers) ListByIDs(_ context.Context, ids []string) ([]*entity.User, error) {
	defer r.lock()()
	var out []*entity.User
	for _, id := range ids {
		if u, ok := r.st().users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

func (r *memProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	defer r.lock()()
	p, ok := r.st().products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
