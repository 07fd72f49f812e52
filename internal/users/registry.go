package users

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// UPO is a stored payment option attached to a gateway user.
type UPO struct {
	ID      string    `json:"userPaymentOptionId"`
	CCToken string    `json:"ccToken"`
	AddedAt time.Time `json:"addedAt"`
}

// User mirrors a gateway user created through this console, so the UI can
// replay payout and UPO charges without re-querying the gateway.
type User struct {
	TokenID     string    `json:"userTokenId"`
	FirstName   string    `json:"firstName,omitempty"`
	LastName    string    `json:"lastName,omitempty"`
	Email       string    `json:"email,omitempty"`
	CountryCode string    `json:"countryCode,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UPOs        []UPO     `json:"upos"`
}

// Registry is the process-wide in-memory user mirror. Volatile by design:
// the gateway remains the source of truth; this exists for UI convenience.
type Registry struct {
	mu      sync.Mutex
	byToken map[string]*User
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		byToken: make(map[string]*User),
		logger:  logger,
	}
}

// Upsert records a created or updated user. Existing UPOs survive updates.
func (r *Registry) Upsert(user User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byToken[user.TokenID]; ok {
		user.CreatedAt = existing.CreatedAt
		user.UPOs = existing.UPOs
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.UPOs == nil {
		user.UPOs = []UPO{}
	}

	r.byToken[user.TokenID] = &user

	r.logger.Debug("User registry updated",
		zap.String("user_token_id", user.TokenID),
	)
}

// Get returns a copy of the user for the token, if present.
func (r *Registry) Get(tokenID string) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byToken[tokenID]
	if !ok {
		return User{}, false
	}
	return copyUser(user), true
}

// AddUPO attaches a stored payment option to an existing user. Unknown
// users are created implicitly: the gateway accepts UPO creation for users
// made outside this console.
func (r *Registry) AddUPO(tokenID string, upo UPO) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byToken[tokenID]
	if !ok {
		user = &User{TokenID: tokenID, CreatedAt: time.Now().UTC()}
		r.byToken[tokenID] = user
	}
	if upo.AddedAt.IsZero() {
		upo.AddedAt = time.Now().UTC()
	}
	user.UPOs = append(user.UPOs, upo)
}

// List returns copies of all known users, oldest first.
func (r *Registry) List() []User {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]User, 0, len(r.byToken))
	for _, user := range r.byToken {
		out = append(out, copyUser(user))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TokenID < out[j].TokenID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func copyUser(user *User) User {
	out := *user
	out.UPOs = make([]UPO, len(user.UPOs))
	copy(out.UPOs, user.UPOs)
	return out
}
