package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/globalmoves/community/internal/email"
	"github.com/globalmoves/community/internal/logger"
	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/repository"
	"github.com/globalmoves/community/internal/storage"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrInvalidCode       = errors.New("invalid or expired code")
	ErrInvalidEmail      = errors.New("invalid email format")
	ErrUserDisabled      = errors.New("user disabled")
)

func maskSessionID(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}

// AuthService issues sessions from emailed sign-in codes and validates
// HMAC-signed requests on behalf of the API service.
type AuthService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	store       storage.SessionStore
	mailer      *email.Sender
}

func NewAuthService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	store storage.SessionStore,
	mailer *email.Sender,
) *AuthService {
	return &AuthService{
		userRepo: userRepo, sessionRepo: sessionRepo, store: store, mailer: mailer,
	}
}

type RequestCodeRequest struct {
	Email    string `json:"email"`
	DeviceID string `json:"device_id"`
}

// Simplified email validation, not full RFC.
var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// onlyDigits keeps only digits (strips spaces and invisible characters pasted
// from the email).
func onlyDigits(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}

func (s *AuthService) RequestCode(ctx context.Context, req RequestCodeRequest) error {
	emailNorm := strings.TrimSpace(strings.ToLower(req.Email))
	if emailNorm == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegexp.MatchString(emailNorm) {
		return ErrInvalidEmail
	}
	allowed, err := s.store.CheckRateLimit(ctx, emailNorm)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrRateLimitExceeded
	}
	// If a code was requested recently (more than 4 min TTL left), resend the
	// same one instead of overwriting it.
	const minTTLToReuse = 240 * time.Second
	if existing, _ := s.store.GetSignInCode(ctx, emailNorm); existing != "" && len(existing) == 6 {
		if ttl, _ := s.store.GetSignInCodeTTL(ctx, emailNorm); ttl >= minTTLToReuse {
			logger.Infof("request-code: resending existing code for key=signin_code:%s (TTL %.0fs)", emailNorm, ttl.Seconds())
			return s.mailer.SendSignInCode(ctx, emailNorm, existing)
		}
	}
	code := generateCode(6)
	if err := s.store.SetSignInCode(ctx, emailNorm, code); err != nil {
		return err
	}
	logger.Infof("request-code: code stored for key=signin_code:%s", emailNorm)
	return s.mailer.SendSignInCode(ctx, emailNorm, code)
}

type VerifyCodeRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	DeviceID string `json:"device_id"`
}

type VerifyCodeResponse struct {
	SessionID     string `json:"session_id"`
	SessionSecret string `json:"session_secret"`
	UserID        string `json:"user_id"`
	IsNewUser     bool   `json:"is_new_user"`
}

func (s *AuthService) VerifyCode(ctx context.Context, req VerifyCodeRequest) (*VerifyCodeResponse, error) {
	emailNorm := strings.TrimSpace(strings.ToLower(req.Email))
	codeNorm := onlyDigits(strings.TrimSpace(req.Code))
	if emailNorm == "" || codeNorm == "" || req.DeviceID == "" {
		return nil, fmt.Errorf("email, code and device_id are required")
	}
	if len(codeNorm) != 6 {
		return nil, ErrInvalidCode
	}
	storedCode, err := s.store.GetSignInCode(ctx, emailNorm)
	if err != nil {
		logger.Errorf("verify-code: store GetSignInCode error key=%q err=%v", emailNorm, err)
		return nil, ErrInvalidCode
	}
	if storedCode == "" {
		logger.Infof("verify-code: key signin_code:%s empty or expired (request a new code)", emailNorm)
		return nil, ErrInvalidCode
	}
	// Constant-time comparison. The stored code is 6 digits, the input is
	// normalized through onlyDigits.
	if len(storedCode) != 6 || subtle.ConstantTimeCompare([]byte(storedCode), []byte(codeNorm)) != 1 {
		logger.Infof("verify-code: mismatch key=%s len(stored)=%d len(entered)=%d", emailNorm, len(storedCode), len(codeNorm))
		return nil, ErrInvalidCode
	}
	// Code is valid: delete it, single use only.
	if err := s.store.DeleteSignInCode(ctx, emailNorm); err != nil {
		logger.Errorf("verify-code: DeleteSignInCode key=%s: %v", emailNorm, err)
	}

	user, err := s.userRepo.GetByEmail(ctx, emailNorm)
	isNewUser := false
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		user, err = s.userRepo.GetOrCreateByEmail(ctx, uuid.New().String(), emailNorm, deriveDisplayName(emailNorm))
		if err != nil {
			return nil, err
		}
		isNewUser = true
	}
	if user.DisabledAt != nil {
		return nil, ErrUserDisabled
	}
	sessionID := uuid.New().String()
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	secretB64 := base64.StdEncoding.EncodeToString(secret)
	now := time.Now().UTC()
	session := &model.Session{
		ID: sessionID, UserID: user.ID, DeviceID: req.DeviceID,
		LastSeenAt: now, CreatedAt: now,
	}
	if err := s.sessionRepo.UpsertByUserIDAndDeviceID(ctx, session); err != nil {
		logger.Errorf("verify-code: upsert session failed: %v", err)
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.store.SetSessionSecret(ctx, sessionID, secretB64); err != nil {
		logger.Errorf("verify-code: SetSessionSecret failed: %v", err)
		if _, delErr := s.sessionRepo.RevokeByID(ctx, sessionID); delErr != nil {
			logger.Errorf("verify-code: rollback revoke session: %v", delErr)
		}
		return nil, fmt.Errorf("save session secret: %w", err)
	}
	return &VerifyCodeResponse{SessionID: sessionID, SessionSecret: secretB64, UserID: user.ID, IsNewUser: isNewUser}, nil
}

func deriveDisplayName(emailAddr string) string {
	at := strings.Index(emailAddr, "@")
	if at <= 0 {
		return ""
	}
	local := emailAddr[:at]
	if len(local) > 50 {
		local = local[:50]
	}
	return local
}

func generateCode(length int) string {
	const digits = "0123456789"
	b := make([]byte, length)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		b[i] = digits[n.Int64()]
	}
	return string(b)
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	return s.sessionRepo.ListByUserID(ctx, userID)
}

func (s *AuthService) LogoutSession(ctx context.Context, userID, sessionID string) (bool, error) {
	ok, err := s.sessionRepo.RevokeByUserIDAndSessionID(ctx, userID, sessionID)
	if err != nil {
		return false, err
	}
	if ok {
		if err := s.store.DeleteSessionSecret(ctx, sessionID); err != nil {
			logger.Errorf("LogoutSession: DeleteSessionSecret session_id=%s: %v", maskSessionID(sessionID), err)
		}
	}
	return ok, nil
}

func (s *AuthService) LogoutAllSessions(ctx context.Context, userID string) (int64, error) {
	ids, err := s.sessionRepo.RevokeByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.store.DeleteSessionSecret(ctx, id); err != nil {
			logger.Errorf("LogoutAllSessions: DeleteSessionSecret session_id=%s: %v", maskSessionID(id), err)
		}
	}
	return int64(len(ids)), nil
}

// ValidateRequest verifies a request signature and returns the user id.
// Called by the API service via POST /internal/validate.
// timestamp is Unix seconds, allowed skew is ±30s.
func (s *AuthService) ValidateRequest(ctx context.Context, sessionID, timestamp, signature, method, path, body string) (userID string, err error) {
	if sessionID == "" || timestamp == "" || signature == "" {
		logger.Errorf("validate: missing session_id/timestamp/signature")
		return "", ErrInvalidCode
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return "", ErrInvalidCode
	}
	t := time.Unix(ts, 0)
	if time.Since(t) > 30*time.Second || time.Until(t) > 30*time.Second {
		logger.Errorf("validate: timestamp out of window session_id=%s", maskSessionID(sessionID))
		return "", ErrInvalidCode
	}
	secretB64, err := s.store.GetSessionSecret(ctx, sessionID)
	if err != nil || secretB64 == "" {
		logger.Errorf("validate: no session secret in store session_id=%s", maskSessionID(sessionID))
		return "", ErrInvalidCode
	}
	secret, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil || len(secret) != 32 {
		return "", ErrInvalidCode
	}
	tryPath := func(p string) bool {
		pl := method + p + body + timestamp
		mac := hmac.New(sha256.New, secret)
		mac.Write([]byte(pl))
		expected := hex.EncodeToString(mac.Sum(nil))
		return hmac.Equal([]byte(signature), []byte(expected))
	}
	if tryPath(path) {
		// signature matched
	} else if strings.HasPrefix(path, "/api/") && tryPath(path[4:]) {
		// the client signed the path without the /api prefix (old client or a proxy)
	} else {
		logger.Errorf("validate: signature mismatch path=%q", path)
		return "", ErrInvalidCode
	}
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil || sess == nil {
		logger.Errorf("validate: session not found session_id=%s err=%v", maskSessionID(sessionID), err)
		return "", ErrInvalidCode
	}
	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil || user == nil || user.DisabledAt != nil {
		if user != nil && user.DisabledAt != nil {
			logger.Infof("validate: user %s disabled", sess.UserID)
		}
		return "", ErrInvalidCode
	}
	if err := s.sessionRepo.UpdateLastSeen(ctx, sessionID, time.Now().UTC()); err != nil {
		logger.Errorf("validate: UpdateLastSeen session_id=%s: %v", maskSessionID(sessionID), err)
	}
	return sess.UserID, nil
}
