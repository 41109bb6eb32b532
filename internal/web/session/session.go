// Package session holds the server-side session store and the session data
// format. Sessions are opaque random IDs mapped to a JSON blob in the
// configured storage backend.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage"

	"github.com/authgrid/authgrid/internal/db/models"
)

// CookieName is the session cookie.
const CookieName = "session"

// Store is the global session store instance.
var Store *session.Store

// Data represents the session data structure.
type Data struct {
	User models.User
}

// Write writes the session data for the given session ID with an expiration duration.
func (s *Data) Write(sessionID string, exp time.Duration) error {
	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return Store.Storage.Set(sessionID, out, exp)
}

// Read reads the session data for the given session ID.
func (s *Data) Read(sessionID string) error {
	byteData, err := Store.Storage.Get(sessionID)
	if err != nil {
		return err
	}

	return json.Unmarshal(byteData, s)
}

// Init initializes the session store with the provided storage backend.
func Init(storage storage.Storage) {
	if storage == nil {
		panic("storage is nil")
	}

	Store = session.New(session.Config{
		Storage: storage,
	})
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CurrentUser resolves the authenticated user of the request, or nil when
// the request carries no valid session. A nil result is the anonymous
// principal.
func CurrentUser(c *fiber.Ctx) *models.User {
	sessionID := c.Cookies(CookieName)
	if sessionID == "" {
		return nil
	}

	data := new(Data)
	if err := data.Read(sessionID); err != nil {
		return nil
	}

	if data.User.ID == 0 {
		return nil
	}

	return &data.User
}

// Destroy removes the session of the request, if any, and clears the cookie.
func Destroy(c *fiber.Ctx) {
	if sessionID := c.Cookies(CookieName); sessionID != "" {
		_ = Store.Storage.Delete(sessionID)
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		MaxAge:   -1,
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
