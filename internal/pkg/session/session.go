package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/UrbanFix/internal/pkg/authz"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/cache"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/env"
)

// Session keys holding the actor triple
const (
	KeyRole = "actor_role"
	KeyID   = "actor_id"
	KeyName = "actor_name"
)

var sessionStore *session.Store

func NewSessionStore() *session.Store {
	// Get Redis client configuration from existing cache setup
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// Create Redis storage for sessions using database 1 (cache uses DB 0)
	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	sessionStore = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		CookieSameSite: "Lax",
		Expiration:     time.Duration(env.GetEnvInt("SESSION_HOURS", 12)) * time.Hour,
		KeyLookup:      "cookie:session_id",
	})

	return sessionStore
}

// SetSessionStore replaces the store, e.g. with an in-memory one in tests
func SetSessionStore(s *session.Store) {
	sessionStore = s
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// SetActor stores the logged in actor and rotates the session id.
func SetActor(c *fiber.Ctx, actor authz.Actor) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}
	sess.Set(KeyRole, string(actor.Role))
	sess.Set(KeyID, actor.ID)
	sess.Set(KeyName, actor.Name)
	return sess.Save()
}

// GetActor returns the session actor or Anonymous.
func GetActor(c *fiber.Ctx) authz.Actor {
	if sessionStore == nil {
		return authz.Anonymous
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return authz.Anonymous
	}
	role, _ := sess.Get(KeyRole).(string)
	id, _ := sess.Get(KeyID).(uint)
	name, _ := sess.Get(KeyName).(string)
	actor := authz.Actor{ID: id, Role: authz.Role(role), Name: name}
	if !actor.IsAuthenticated() {
		return authz.Anonymous
	}
	return actor
}

// Clear destroys the current session.
func Clear(c *fiber.Ctx) error {
	if sessionStore == nil {
		return nil
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	return sess.Destroy()
}
