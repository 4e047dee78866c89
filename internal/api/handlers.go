package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"aurioncal/internal/ics"
	"aurioncal/internal/logging"
	"aurioncal/internal/models"
	"aurioncal/internal/security"
	"aurioncal/internal/store"
)

// getFeed serves the user's calendar as an ICS document. Stored events are
// served as-is even when stale; a refresh is dispatched in the background so
// the next poll sees fresh data. A user that never synced gets a valid empty
// calendar.
func (s *Server) getFeed(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_user_id", "message": "user_id must be a UUID"}})
		return
	}
	token := strings.TrimSuffix(c.Param("token"), ".ics")

	ctx, cancel := s.ctx(c)
	defer cancel()

	user, err := s.deps.Store.GetUser(ctx, userID)
	if err != nil {
		s.feedNotFound(c, err, userID)
		return
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(user.CalendarToken.String())) != 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "calendar not found"}})
		return
	}

	if s.feedStale(user) {
		s.backgroundRefresh(c, userID)
	}

	if s.deps.Cache != nil {
		if cached, err := s.deps.Cache.GetFeed(ctx, userID.String()); err == nil && cached != "" {
			s.writeFeed(c, cached, "HIT")
			return
		}
	}

	events, err := s.deps.Store.ListEvents(ctx, userID)
	if err != nil {
		s.log.Error("feed_list_events_failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "could not load calendar"}})
		return
	}

	formatted := make([]ics.Event, 0, len(events))
	for _, ev := range events {
		formatted = append(formatted, ics.FormatEvent(ev, s.exhibition))
	}
	doc := ics.BuildFeed(formatted, s.exhibition)

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetFeed(ctx, userID.String(), doc, s.cfg.FeedCacheTTL); err != nil {
			s.log.Warn("feed_cache_write_failed", "user_id", userID, "error", err)
		}
	}
	s.writeFeed(c, doc, "MISS")
}

func (s *Server) writeFeed(c *gin.Context, doc, cache string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ics.AttachmentFilename))
	c.Header("X-Cache", cache)
	c.Data(http.StatusOK, ics.ContentType, []byte(doc))
}

func (s *Server) feedNotFound(c *gin.Context, err error, userID uuid.UUID) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "calendar not found"}})
		return
	}
	s.log.Error("feed_load_user_failed", "user_id", userID, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "could not load calendar"}})
}

func (s *Server) feedStale(user *models.User) bool {
	if user.LastUpdate == nil {
		return true
	}
	return time.Since(*user.LastUpdate) > s.cfg.RefreshMaxAge
}

// backgroundRefresh dispatches a refresh detached from the request so the
// client never waits on the upstream source.
func (s *Server) backgroundRefresh(c *gin.Context, userID uuid.UUID) {
	if s.deps.Refresher == nil {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	go s.deps.Refresher.Refresh(ctx, userID)
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (r *credentialsRequest) normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": "email and password are required"}})
		return
	}
	req.normalize()

	ctx, cancel := s.ctx(c)
	defer cancel()

	ok, err := s.deps.Planning.CheckLogin(ctx, req.Email, req.Password)
	if err != nil {
		s.log.Warn("register_upstream_check_failed", "email", logging.MaskEmail(req.Email), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"code": "upstream_unavailable", "message": "planning source unreachable"}})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "invalid_credentials", "message": "planning source rejected the credentials"}})
		return
	}

	if _, err := s.deps.Store.GetUserByEmail(ctx, req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "email_taken", "message": "an account already exists for this email"}})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.Error("register_lookup_failed", "email", logging.MaskEmail(req.Email), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "registration failed"}})
		return
	}

	encrypted, err := security.EncryptSecret(req.Password, s.cfg.EncryptionKey)
	if err != nil {
		s.log.Error("register_encrypt_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "registration failed"}})
		return
	}

	user := models.User{
		ID:                uuid.New(),
		Email:             req.Email,
		PasswordEncrypted: encrypted,
		CalendarToken:     uuid.New(),
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.deps.Store.CreateUser(ctx, user); err != nil {
		// A concurrent registration can slip past the lookup above and
		// land on the unique constraint instead.
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "email_taken", "message": "an account already exists for this email"}})
			return
		}
		s.log.Error("register_create_failed", "email", logging.MaskEmail(req.Email), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "registration failed"}})
		return
	}

	s.log.Info("user_registered", "user_id", user.ID, "email", logging.MaskEmail(user.Email))
	s.backgroundRefresh(c, user.ID)

	c.JSON(http.StatusCreated, gin.H{
		"user_id":        user.ID,
		"calendar_token": user.CalendarToken,
		"feed_url":       s.feedURL(user.ID, user.CalendarToken),
	})
}

// checkLogin revalidates an existing user's credentials upstream. When the
// credentials are valid but no longer match what is stored (the user changed
// their planning password), the stored secret is replaced and a refresh is
// scheduled.
func (s *Server) checkLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": "email and password are required"}})
		return
	}
	req.normalize()

	ctx, cancel := s.ctx(c)
	defer cancel()

	user, err := s.deps.Store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "unknown_user", "message": "no account for this email"}})
		return
	}
	if err != nil {
		s.log.Error("check_login_lookup_failed", "email", logging.MaskEmail(req.Email), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "login check failed"}})
		return
	}

	ok, err := s.deps.Planning.CheckLogin(ctx, req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"code": "upstream_unavailable", "message": "planning source unreachable"}})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "invalid_credentials", "message": "planning source rejected the credentials"}})
		return
	}

	stored, err := security.DecryptSecret(user.PasswordEncrypted, s.cfg.EncryptionKey)
	if err != nil || stored != req.Password {
		encrypted, encErr := security.EncryptSecret(req.Password, s.cfg.EncryptionKey)
		if encErr != nil {
			s.log.Error("check_login_encrypt_failed", "user_id", user.ID, "error", encErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "login check failed"}})
			return
		}
		if err := s.deps.Store.UpdatePassword(ctx, user.ID, encrypted); err != nil {
			s.log.Error("check_login_password_update_failed", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "login check failed"}})
			return
		}
		s.log.Info("password_drift_repaired", "user_id", user.ID)
		s.backgroundRefresh(c, user.ID)
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "user_id": user.ID})
}

// authUser resolves :user_id and enforces the X-Calendar-Token header.
func (s *Server) authUser(c *gin.Context) (*models.User, bool) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_user_id", "message": "user_id must be a UUID"}})
		return nil, false
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	user, err := s.deps.Store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "unknown_user", "message": "no such user"}})
		return nil, false
	}
	if err != nil {
		s.log.Error("auth_lookup_failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "lookup failed"}})
		return nil, false
	}

	token := strings.TrimSpace(c.GetHeader("X-Calendar-Token"))
	if subtle.ConstantTimeCompare([]byte(token), []byte(user.CalendarToken.String())) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "unauthorized", "message": "missing or invalid X-Calendar-Token"}})
		return nil, false
	}
	return user, true
}

func (s *Server) getProfile(c *gin.Context) {
	user, ok := s.authUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":     user.ID,
		"email":       user.Email,
		"last_update": user.LastUpdate,
		"created_at":  user.CreatedAt,
		"feed_url":    s.feedURL(user.ID, user.CalendarToken),
	})
}

func (s *Server) resetToken(c *gin.Context) {
	user, ok := s.authUser(c)
	if !ok {
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	token, err := s.deps.Store.ResetCalendarToken(ctx, user.ID)
	if err != nil {
		s.log.Error("reset_token_failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "token reset failed"}})
		return
	}

	s.log.Info("calendar_token_reset", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"calendar_token": token,
		"feed_url":       s.feedURL(user.ID, token),
	})
}

func (s *Server) deleteUser(c *gin.Context) {
	user, ok := s.authUser(c)
	if !ok {
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	if err := s.deps.Store.DeleteUser(ctx, user.ID); err != nil {
		s.log.Error("delete_user_failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "deletion failed"}})
		return
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.InvalidateFeed(ctx, user.ID.String()); err != nil {
			s.log.Warn("delete_user_cache_invalidate_failed", "user_id", user.ID, "error", err)
		}
	}

	s.log.Info("user_deleted", "user_id", user.ID)
	c.Status(http.StatusNoContent)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	status := http.StatusOK
	database := "skipped"
	if s.deps.PingDB != nil {
		database = "connected"
		if err := s.deps.PingDB(ctx); err != nil {
			database = "error"
			status = http.StatusServiceUnavailable
		}
	}

	cache := "skipped"
	if s.deps.Cache != nil {
		cache = "connected"
		if err := s.deps.Cache.Ping(ctx); err != nil {
			cache = "error"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, gin.H{
		"status":   statusWord(status),
		"database": database,
		"redis":    cache,
	})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "degraded"
}

func (s *Server) feedURL(userID, token uuid.UUID) string {
	base := strings.TrimSuffix(s.cfg.AppURL, "/")
	return fmt.Sprintf("%s/api/calendar/%s/%s.ics", base, userID, token)
}
