// Package session stores signed-in users' sessions in Valkey and carries
// one-shot flash messages in a cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/models"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "cb_session"

	// DefaultTTL is how long a session lives in Valkey before automatic expiry.
	DefaultTTL = 24 * time.Hour

	keyPrefix  = "session:"
	userPrefix = "user_sessions:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Data holds the session payload stored in Valkey: the signed-in user's
// identity as of login.
type Data struct {
	UserID    int64       `json:"user_id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewData builds the session payload for a user.
func NewData(u *models.User) *Data {
	return &Data{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// Identity converts the session payload into a request identity.
func (d *Data) Identity() access.Identity {
	if d == nil {
		return access.Anonymous()
	}
	return access.Identity{UserID: d.UserID, Username: d.Username, Email: d.Email, Role: d.Role}
}

// Store keeps sessions in Valkey. Each session lives under session:<id>
// and is also listed in a per-user set so every session a user holds
// can be revoked at once.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore returns a Store over client. secure sets the cookie Secure flag.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{client: client, ttl: DefaultTTL, secure: secure}
}

// Connect dials Valkey and pings it once.
func Connect(host, port, password string, db int) (*redis.Client, error) {
	addr := net.JoinHostPort(host, port)
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", addr, err)
	}
	slog.Info("valkey connected", "addr", addr)
	return client, nil
}

func sessionKey(id string) string { return keyPrefix + id }

func userKey(userID int64) string { return userPrefix + strconv.FormatInt(userID, 10) }

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// Create signs the user in under a fresh session ID. A session already
// carried by r is dropped first so a login never reuses an old ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, r *http.Request, data *Data) (string, error) {
	if old, err := r.Cookie(CookieName); err == nil && old.Value != "" {
		if err := s.drop(ctx, old.Value); err != nil {
			return "", err
		}
	}

	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	data.CreatedAt = time.Now().UTC()
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session encode: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(id), payload, s.ttl)
		p.SAdd(ctx, userKey(data.UserID), id)
		p.Expire(ctx, userKey(data.UserID), s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	http.SetCookie(w, s.cookie(id, int(s.ttl.Seconds())))
	return id, nil
}

// Get loads the session named by the request cookie and pushes its expiry
// out by the full TTL. A missing cookie or expired session yields nil.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}

	payload, err := s.client.GetEx(ctx, sessionKey(c.Value), s.ttl).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &data, nil
}

// Update rewrites the payload of the request's session in place.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return errors.New("session update: no session cookie")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(c.Value), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	return nil
}

// Destroy ends the request's session and expires the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	if err := s.drop(ctx, c.Value); err != nil {
		return err
	}
	http.SetCookie(w, s.cookie("", -1))
	return nil
}

// Revoke ends every session held by userID.
func (s *Store) Revoke(ctx context.Context, userID int64) error {
	ids, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("session revoke user %d: %w", userID, err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userKey(userID))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session revoke user %d: %w", userID, err)
	}
	return nil
}

// drop deletes one session and unlists it from its owner's set.
func (s *Store) drop(ctx context.Context, id string) error {
	payload, err := s.client.GetDel(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	var data Data
	if json.Unmarshal(payload, &data) == nil && data.UserID != 0 {
		if err := s.client.SRem(ctx, userKey(data.UserID), id).Err(); err != nil {
			return fmt.Errorf("session destroy: %w", err)
		}
	}
	return nil
}

func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
